package loan

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Caller is the identity the transport layer vouches for. The engine trusts it as given.
type Caller struct {
	ID   string
	Role Role
}

func (c Caller) IsAdmin() bool { return c.Role == RoleAdmin }

func (c Caller) Owns(l *Loan) bool { return c.ID != "" && l.OwnerID == c.ID }

// CanView allows the owner and any administrator.
func (c Caller) CanView(l *Loan) bool { return c.IsAdmin() || c.Owns(l) }
