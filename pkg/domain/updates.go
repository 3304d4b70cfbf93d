package domain

import "time"

// RecipientUpdate lists the mutable recipient fields. Nil fields are left untouched.
type RecipientUpdate struct {
	FirstName        *string
	LastName         *string
	Avatar           *Asset
	DateOfBirth      *time.Time
	ClearDateOfBirth bool
	Location         *string
	Fallen           *bool
	CollectionCount  *int
}

// IsEmpty reports whether the update changes nothing.
func (u RecipientUpdate) IsEmpty() bool {
	return u.FirstName == nil && u.LastName == nil && u.Avatar == nil && u.DateOfBirth == nil &&
		!u.ClearDateOfBirth && u.Location == nil && u.Fallen == nil && u.CollectionCount == nil
}

// Apply merges the set fields into r.
func (u RecipientUpdate) Apply(r *Recipient) {
	if u.FirstName != nil {
		r.FirstName = *u.FirstName
	}
	if u.LastName != nil {
		r.LastName = *u.LastName
	}
	if u.Avatar != nil {
		r.Avatar = *u.Avatar
	}
	if u.ClearDateOfBirth {
		r.DateOfBirth = nil
	} else if u.DateOfBirth != nil {
		t := *u.DateOfBirth
		r.DateOfBirth = &t
	}
	if u.Location != nil {
		r.Location = *u.Location
	}
	if u.Fallen != nil {
		r.Fallen = *u.Fallen
	}
	if u.CollectionCount != nil {
		r.CollectionCount = *u.CollectionCount
	}
}

// Fields returns the changed fields keyed by their document field name.
func (u RecipientUpdate) Fields() map[string]any {
	out := make(map[string]any)
	if u.FirstName != nil {
		out["first_name"] = *u.FirstName
	}
	if u.LastName != nil {
		out["last_name"] = *u.LastName
	}
	if u.Avatar != nil {
		out["avatar"] = *u.Avatar
	}
	if u.ClearDateOfBirth {
		out["date_of_birth"] = nil
	} else if u.DateOfBirth != nil {
		out["date_of_birth"] = *u.DateOfBirth
	}
	if u.Location != nil {
		out["location"] = *u.Location
	}
	if u.Fallen != nil {
		out["fallen"] = *u.Fallen
	}
	if u.CollectionCount != nil {
		out["collection_count"] = *u.CollectionCount
	}
	return out
}

// CollectionUpdate lists the mutable collection fields.
type CollectionUpdate struct {
	Title    *string
	Cover    *Asset
	SetCount *int
}

// IsEmpty reports whether the update changes nothing.
func (u CollectionUpdate) IsEmpty() bool {
	return u.Title == nil && u.Cover == nil && u.SetCount == nil
}

// Apply merges the set fields into c.
func (u CollectionUpdate) Apply(c *Collection) {
	if u.Title != nil {
		c.Title = *u.Title
	}
	if u.Cover != nil {
		c.Cover = *u.Cover
	}
	if u.SetCount != nil {
		c.SetCount = *u.SetCount
	}
}

// Fields returns the changed fields keyed by their document field name.
func (u CollectionUpdate) Fields() map[string]any {
	out := make(map[string]any)
	if u.Title != nil {
		out["title"] = *u.Title
	}
	if u.Cover != nil {
		out["cover"] = *u.Cover
	}
	if u.SetCount != nil {
		out["set_count"] = *u.SetCount
	}
	return out
}

// SetUpdate lists the mutable set fields. Ownership never changes after creation.
type SetUpdate struct {
	Image *Asset
	Audio *Asset
}

// IsEmpty reports whether the update changes nothing.
func (u SetUpdate) IsEmpty() bool { return u.Image == nil && u.Audio == nil }

// Apply merges the set fields into s.
func (u SetUpdate) Apply(s *Set) {
	if u.Image != nil {
		s.Image = *u.Image
	}
	if u.Audio != nil {
		s.Audio = *u.Audio
	}
}

// Fields returns the changed fields keyed by their document field name.
func (u SetUpdate) Fields() map[string]any {
	out := make(map[string]any)
	if u.Image != nil {
		out["image"] = *u.Image
	}
	if u.Audio != nil {
		out["audio"] = *u.Audio
	}
	return out
}

// ContactUpdate lists the mutable emergency contact fields.
type ContactUpdate struct {
	FirstName    *string
	LastName     *string
	Relationship *string
	Phones       []string
	Emails       []string
	ClearEmails  bool
}

// IsEmpty reports whether the update changes nothing.
func (u ContactUpdate) IsEmpty() bool {
	return u.FirstName == nil && u.LastName == nil && u.Relationship == nil &&
		u.Phones == nil && u.Emails == nil && !u.ClearEmails
}

// Apply merges the set fields into c.
func (u ContactUpdate) Apply(c *EmergencyContact) {
	if u.FirstName != nil {
		c.FirstName = *u.FirstName
	}
	if u.LastName != nil {
		c.LastName = *u.LastName
	}
	if u.Relationship != nil {
		c.Relationship = *u.Relationship
	}
	if u.Phones != nil {
		c.Phones = append([]string(nil), u.Phones...)
	}
	if u.ClearEmails {
		c.Emails = nil
	} else if u.Emails != nil {
		c.Emails = append([]string(nil), u.Emails...)
	}
}

// Fields returns the changed fields keyed by their document field name.
func (u ContactUpdate) Fields() map[string]any {
	out := make(map[string]any)
	if u.FirstName != nil {
		out["first_name"] = *u.FirstName
	}
	if u.LastName != nil {
		out["last_name"] = *u.LastName
	}
	if u.Relationship != nil {
		out["relationship"] = *u.Relationship
	}
	if u.Phones != nil {
		out["phones"] = append([]string(nil), u.Phones...)
	}
	if u.ClearEmails {
		out["emails"] = nil
	} else if u.Emails != nil {
		out["emails"] = append([]string(nil), u.Emails...)
	}
	return out
}
