// Package collector ships the Telethon helper script that onionpan drives.
package collector

import _ "embed"

// FileName is the script's file name inside the config directory.
const FileName = "collector_onion.py"

// Script is the helper source, installed by "onionpan init".
//
//go:embed collector_onion.py
var Script []byte
