// Package hashstr implements the hash resolver for hashed strings.
//
// A hashed string travels as a stable integer: the first eight bytes of the
// BLAKE3 digest of its text, little-endian. Narrow (4-byte) properties
// carry the low 32 bits. The empty string always hashes to zero.
//
//	tab := hashstr.NewTable()
//	hs := tab.Intern("Weapon_Sword")
//	text, err := tab.ResolveHash(hs.Hash)
//
// Resolution only succeeds for text that was interned in this process.
package hashstr
