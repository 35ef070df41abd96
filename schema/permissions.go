package schema

// Permissions describes access rules for a table or a field. Either one of
// the blanket flags is set, or any subset of the four per-operation
// expressions. A blanket grant and a per-operation map are distinct
// representations and never compare equal to each other.
type Permissions struct {
	Full bool
	None bool

	// Per-operation WHERE expressions; empty string means the slot is
	// absent, not "deny".
	Select string
	Create string
	Update string
	Delete string
}

// Full and None blanket constructors.
func AllowFull() *Permissions { return &Permissions{Full: true} }
func DenyAll() *Permissions   { return &Permissions{None: true} }

// Equal reports structural equality. The four operation slots are compared
// independently; blanket and per-operation forms are never equal.
func (p *Permissions) Equal(o *Permissions) bool {
	if p == nil || o == nil {
		return p == o
	}
	return p.Full == o.Full &&
		p.None == o.None &&
		p.Select == o.Select &&
		p.Create == o.Create &&
		p.Update == o.Update &&
		p.Delete == o.Delete
}

// Blanket reports whether the permissions are a blanket grant or deny.
func (p *Permissions) Blanket() bool {
	return p != nil && (p.Full || p.None)
}
