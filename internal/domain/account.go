package domain

// AccountName identifies one portal account for the lifetime of a run.
type AccountName string

// Account is a configured portal account. Immutable once loaded; the
// credential secret lives in a secret store and is resolved by reference.
type Account struct {
	Name     AccountName
	Username string
	// SecretRef points to a secret-store entry holding the portal password,
	// typically in "file://railguard/<name>/password" form.
	SecretRef string
}
