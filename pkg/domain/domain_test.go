package domain

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestRecipientUpdateApplyAndFields(t *testing.T) {
	dob := time.Date(1940, 5, 2, 0, 0, 0, 0, time.UTC)
	first, count := "Ada", 3
	r := Recipient{FirstName: "A", LastName: "Lovelace", Location: "Home"}
	u := RecipientUpdate{FirstName: &first, DateOfBirth: &dob, CollectionCount: &count}
	if u.IsEmpty() {
		t.Fatal("update with fields reported empty")
	}
	u.Apply(&r)
	if r.FirstName != "Ada" || r.CollectionCount != 3 || r.Location != "Home" || !r.DateOfBirth.Equal(dob) {
		t.Fatalf("unexpected recipient after apply: %+v", r)
	}
	want := map[string]any{"first_name": "Ada", "date_of_birth": dob, "collection_count": 3}
	if got := u.Fields(); !reflect.DeepEqual(got, want) {
		t.Fatalf("fields = %v, want %v", got, want)
	}

	reset := RecipientUpdate{ClearDateOfBirth: true}
	reset.Apply(&r)
	if r.DateOfBirth != nil {
		t.Fatal("ClearDateOfBirth must reset the date")
	}
	if v, ok := reset.Fields()["date_of_birth"]; !ok || v != nil {
		t.Fatalf("clear must emit a nil date_of_birth field, got %v", reset.Fields())
	}
}

func TestEmptyUpdates(t *testing.T) {
	cases := map[string]bool{
		"recipient":  RecipientUpdate{}.IsEmpty(),
		"collection": CollectionUpdate{}.IsEmpty(),
		"set":        SetUpdate{}.IsEmpty(),
		"contact":    ContactUpdate{}.IsEmpty(),
	}
	for name, empty := range cases {
		if !empty {
			t.Fatalf("zero %s update must be empty", name)
		}
	}
	if (ContactUpdate{Phones: []string{}}).IsEmpty() {
		t.Fatal("an explicit empty phone list is a change")
	}
}

func TestCollectionAndSetUpdates(t *testing.T) {
	title, n := "Garden", 4
	c := Collection{Title: "Old"}
	cu := CollectionUpdate{Title: &title, SetCount: &n}
	cu.Apply(&c)
	if c.Title != "Garden" || c.SetCount != 4 {
		t.Fatalf("collection = %+v", c)
	}
	if len(cu.Fields()) != 2 {
		t.Fatalf("fields = %v", cu.Fields())
	}

	img := Asset{Path: "recipients/r1/set/image/a.jpg", URL: "u", Title: "Rose"}
	s := Set{CollectionID: "c1"}
	su := SetUpdate{Image: &img}
	su.Apply(&s)
	if s.Image != img || s.CollectionID != "c1" {
		t.Fatalf("set = %+v", s)
	}
	if got := su.Fields(); !reflect.DeepEqual(got, map[string]any{"image": img}) {
		t.Fatalf("fields = %v", got)
	}
}

func TestContactUpdateCopiesSlices(t *testing.T) {
	phones := []string{"+1"}
	c := EmergencyContact{Emails: []string{"a@example.com"}}
	u := ContactUpdate{Phones: phones, ClearEmails: true}
	u.Apply(&c)
	phones[0] = "changed"
	if c.Phones[0] != "+1" {
		t.Fatal("Apply must copy phones")
	}
	if c.Emails != nil {
		t.Fatal("ClearEmails must drop emails")
	}
	if v, ok := u.Fields()["emails"]; !ok || v != nil {
		t.Fatalf("fields = %v", u.Fields())
	}
}

func TestCloneIsolation(t *testing.T) {
	dob := time.Date(1950, 1, 1, 0, 0, 0, 0, time.UTC)
	r := Recipient{DateOfBirth: &dob}
	cp := CloneRecipient(r)
	*cp.DateOfBirth = time.Time{}
	if !r.DateOfBirth.Equal(dob) {
		t.Fatal("CloneRecipient shares the date pointer")
	}

	c := EmergencyContact{Phones: []string{"+1"}, Emails: []string{"x@y"}}
	cc := CloneContact(c)
	cc.Phones[0] = "+2"
	cc.Emails[0] = "z"
	if c.Phones[0] != "+1" || c.Emails[0] != "x@y" {
		t.Fatal("CloneContact shares slices")
	}
}

func TestContactValidate(t *testing.T) {
	err := EmergencyContact{Phones: []string{"", "  "}}.Validate()
	var verr ValidationError
	if !errors.As(err, &verr) || verr.Field != "phones" || verr.Entity != EntityContact {
		t.Fatalf("expected phones validation error, got %v", err)
	}
	if err := (EmergencyContact{Phones: []string{"+15550100"}}).Validate(); err != nil {
		t.Fatalf("valid contact rejected: %v", err)
	}
}

func TestNamesAndErrors(t *testing.T) {
	if got := (Recipient{FirstName: "Ada", LastName: ""}).FullName(); got != "Ada" {
		t.Fatalf("FullName = %q", got)
	}
	if !(Asset{Path: " "}).Empty() || (Asset{Path: "k"}).Empty() {
		t.Fatal("Asset.Empty mismatch")
	}
	if got := (NotFoundError{Entity: EntitySet, ID: "s1"}).Error(); got != "set s1 not found" {
		t.Fatalf("NotFoundError = %q", got)
	}
	if ActionDelete != "delete" || ActionCreate != "create" {
		t.Fatal("change actions must keep their wire names")
	}
}
