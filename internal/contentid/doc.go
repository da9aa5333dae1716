// Package contentid converts between 32-hex MD5 content identifiers and their
// nested on-disk paths, and walks content trees.
//
// Content is stored under a path derived from its identifier by splitting the
// 32 hex digits into ten three-character segments plus a two-character tail.
// The nesting keeps every directory below roughly 4096 children even with
// millions of items.
package contentid
