// Package statetest builds small recipient graphs for tests across packages.
package statetest

import (
	"carecore/internal/state"
	"carecore/pkg/domain"
)

// Caregiver is the caregiver ID used by every fixture entity.
const Caregiver = "cg1"

// Graph holds the entities seeded by Seed.
type Graph struct {
	Recipients  []domain.Recipient
	Collections []domain.Collection
	Sets        []domain.Set
	Contacts    []domain.EmergencyContact
}

// Recipient builds a recipient with an avatar stored under the standard path scheme.
func Recipient(id, first, last string) domain.Recipient {
	return domain.Recipient{
		Base:        domain.Base{ID: id},
		CaregiverID: Caregiver,
		FirstName:   first,
		LastName:    last,
		Avatar:      asset("recipients/" + id + "/avatar/image/avatar.jpg"),
	}
}

// Collection builds a collection with a cover asset.
func Collection(id, recipientID, title string) domain.Collection {
	return domain.Collection{
		Base:        domain.Base{ID: id},
		RecipientID: recipientID,
		CaregiverID: Caregiver,
		Title:       title,
		Cover:       asset("recipients/" + recipientID + "/cover/image/" + id + ".jpg"),
	}
}

// Set builds a set with image and audio assets.
func Set(id, collectionID, recipientID, title string) domain.Set {
	img := asset("recipients/" + recipientID + "/set/image/" + id + ".jpg")
	img.Title = title
	audio := asset("recipients/" + recipientID + "/set/audio/" + id + ".m4a")
	audio.Title = title
	return domain.Set{
		Base:         domain.Base{ID: id},
		CollectionID: collectionID,
		RecipientID:  recipientID,
		CaregiverID:  Caregiver,
		Image:        img,
		Audio:        audio,
	}
}

// Contact builds an emergency contact with one phone number.
func Contact(id, recipientID, first, last string) domain.EmergencyContact {
	return domain.EmergencyContact{
		Base:         domain.Base{ID: id},
		RecipientID:  recipientID,
		FirstName:    first,
		LastName:     last,
		Relationship: "child",
		Phones:       []string{"+15550100"},
	}
}

func asset(path string) domain.Asset {
	return domain.Asset{URL: "https://assets.test/" + path, Path: path}
}

// Scenario returns recipient r1 owning collection c1 (sets s1, s2) and contact
// ct1, plus recipient r2 owning collection c2 (set s3) and contact ct2.
func Scenario() Graph {
	r1 := Recipient("r1", "Ada", "Lovelace")
	r1.CollectionCount = 1
	r2 := Recipient("r2", "Alan", "Turing")
	r2.CollectionCount = 1
	c1 := Collection("c1", "r1", "Family")
	c1.SetCount = 2
	c2 := Collection("c2", "r2", "Garden")
	c2.SetCount = 1
	return Graph{
		Recipients:  []domain.Recipient{r1, r2},
		Collections: []domain.Collection{c1, c2},
		Sets: []domain.Set{
			Set("s1", "c1", "r1", "Daughter"),
			Set("s2", "c1", "r1", "Son"),
			Set("s3", "c2", "r2", "Roses"),
		},
		Contacts: []domain.EmergencyContact{
			Contact("ct1", "r1", "Byron", "King"),
			Contact("ct2", "r2", "Sara", "Turing"),
		},
	}
}

// Snapshot converts g to a store snapshot.
func (g Graph) Snapshot() state.Snapshot {
	return state.Snapshot{Recipients: g.Recipients, Collections: g.Collections, Sets: g.Sets, Contacts: g.Contacts}
}

// Seed returns a store populated with g.
func Seed(g Graph) *state.Store {
	s := state.New()
	s.Import(g.Snapshot())
	return s
}
