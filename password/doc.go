// Package password hashes and verifies passwords.
//
// New digests are argon2id PHC strings:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Multi] also verifies bcrypt digests so that accounts imported from older
// systems keep working; NeedsUpgrade flags them for rehashing.
//
// Password policy (minimum length) is enforced by the engine, not here.
package password
