// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the durable local cache for gptapi.
//
// The cache is a small string key/value store with two backends: a SQLite
// database (the default) and a single JSON file written atomically. Cache
// layers typed accessors for the keys the client uses on top of either
// backend.
//
// # Key Types
//
//   - KV: the backend interface (Get, Set, SetMany, Delete)
//   - SQLiteKV: modernc.org/sqlite backed store
//   - FileKV: JSON file backed store
//   - Cache: typed access to conversations, active ID, user ID and settings
//
// # Keys
//
//	secure_chat_chats       JSON array of conversations
//	secure_chat_current_id  last active conversation ID
//	chat_user_id            durable user ID (the login username)
//	chat_model              selected model name
//	palette, mode           theme settings
//
// # Usage
//
//	cache, err := storage.Open(storage.Options{Backend: storage.BackendSQLite, Dir: dataDir})
//	if err != nil {
//	    return err
//	}
//	defer cache.Close()
//	convs, err := cache.LoadConversations()
package storage
