// Package password hashes and verifies login passwords with Argon2id.
//
// Hashes use the PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<key>
//
// [Argon2.NeedsRehash] reports hashes produced with weaker parameters so a host
// can re-hash after the next successful login. [Argon2.Burn] exists for the
// login path: it costs the same as a verification and lets unknown accounts fail
// in the same time as wrong passwords.
package password
