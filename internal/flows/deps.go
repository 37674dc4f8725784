package flows

// Deps groups flow dependency sets. The root engine builds this once and
// delegates each operation to the matching flow.
type Deps struct {
	Authenticate AuthenticateDeps
	Resolve      ResolveDeps
	Revoke       RevokeDeps
	Renew        RenewDeps
	Logout       LogoutDeps
	Login        LoginDeps
}
