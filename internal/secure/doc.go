// Package secure implements the keyed obfuscated store: values written
// through it are JSON-encoded, XORed against a per-store random key and
// base64-encoded before they reach the underlying item store.
//
// WARNING: this is obfuscation against casual inspection, not encryption.
// The XOR scheme has no integrity check, leaks value length, and anyone who
// can read the store can also read the key kept next to the data. Do not use
// it to protect credentials or other high-value secrets; those need an
// authenticated-encryption primitive and a key held outside the store.
//
// The encoding is kept bit-for-bit compatible with values written by the
// browser build of the journal, so existing data keeps decoding.
package secure
