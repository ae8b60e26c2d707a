package models

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

const (
	PathAccountID       = "account.id"
	PathAccountCreation = "account.stats.creation"

	EmergencyContacts = 2
)

// Profile is a member's document keyed by their identifier.
type Profile struct {
	Identifier string
	Data       *Node
	// IsNew is true until the document has been written once.
	IsNew bool
}

// NewProfileDocument builds the default document. Every call returns a tree
// that shares nothing with any other.
func NewProfileDocument(identifier string, created time.Time) *Node {
	emergency := make([]*Node, EmergencyContacts)
	for i := range emergency {
		emergency[i] = Mapping(map[string]*Node{
			"firstname":    Scalar(""),
			"familyname":   Scalar(""),
			"relationship": Scalar(""),
			"gsm":          Scalar(""),
			"phone":        Scalar(""),
		})
	}

	return Mapping(map[string]*Node{
		"account": Mapping(map[string]*Node{
			"id": Scalar(identifier),
			"stats": Mapping(map[string]*Node{
				"creation": Scalar(unixSeconds(created)),
			}),
		}),
		"personal": Mapping(map[string]*Node{
			"firstname":  Scalar(""),
			"familyname": Scalar(""),
			"birthdate":  Scalar(""),
		}),
		"contact": Mapping(map[string]*Node{
			"email":    Scalar(""),
			"phone":    Scalar(""),
			"domicile": Scalar(""),
			"post":     Scalar(""),
		}),
		"emergency": Sequence(emergency...),
	})
}

func NewProfile(identifier string, created time.Time) *Profile {
	return &Profile{
		Identifier: identifier,
		Data:       NewProfileDocument(identifier, created),
		IsNew:      true,
	}
}

// Update trims every value and writes it at its dotted path. Paths are
// applied in sorted order and the first failure stops the update. It returns
// the paths whose value actually changed.
func (p *Profile) Update(values map[string]string) ([]string, error) {
	paths := make([]string, 0, len(values))
	for path := range values {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var changed []string
	for _, path := range paths {
		if path == "account" || strings.HasPrefix(path, "account.") {
			return changed, &PathError{Path: path, Reason: "account fields are read-only"}
		}
		value := strings.TrimSpace(values[path])

		current, err := p.Data.Lookup(path)
		if err != nil {
			return changed, err
		}
		if err := p.Data.Set(path, value); err != nil {
			return changed, err
		}
		if current.Value() != value {
			changed = append(changed, path)
		}
	}
	return changed, nil
}

// Get returns the display value at path, or "" when it does not resolve.
func (p *Profile) Get(path string) string {
	node, err := p.Data.Lookup(path)
	if err != nil {
		return ""
	}
	return node.String()
}

func (p *Profile) CreatedAt() (time.Time, error) {
	node, err := p.Data.Lookup(PathAccountCreation)
	if err != nil {
		return time.Time{}, err
	}
	secs, ok := node.Value().(float64)
	if !ok {
		return time.Time{}, fmt.Errorf("%s is %T, not a number", PathAccountCreation, node.Value())
	}
	whole, frac := math.Modf(secs)
	return time.Unix(int64(whole), int64(frac*1e9)), nil
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
