package auth

// Operator is the single account allowed to use the application.
type Operator struct {
	Username string
}
