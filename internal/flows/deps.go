package flows

// Deps groups flow dependency sets. The root engine builds this once at Build
// time and delegates request methods to the matching flow.
type Deps struct {
	Tokens        TokenDeps
	SignIn        SignInDeps
	Refresh       RefreshDeps
	MFA           MFADeps
	PasswordReset PasswordResetDeps
}
