package domain

// CloneRecipient returns a deep copy of r.
func CloneRecipient(r Recipient) Recipient {
	cp := r
	if r.DateOfBirth != nil {
		t := *r.DateOfBirth
		cp.DateOfBirth = &t
	}
	return cp
}

// CloneCollection returns a copy of c. Collections hold no reference fields.
func CloneCollection(c Collection) Collection { return c }

// CloneSet returns a copy of s.
func CloneSet(s Set) Set { return s }

// CloneContact returns a deep copy of c.
func CloneContact(c EmergencyContact) EmergencyContact {
	cp := c
	cp.Phones = append([]string(nil), c.Phones...)
	if c.Emails != nil {
		cp.Emails = append([]string(nil), c.Emails...)
	}
	return cp
}
