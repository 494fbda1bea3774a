package entity

import (
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// StatusProcessed is the status written by the batch processing run
const StatusProcessed = "PROCESSED"

var emailPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9._-]*@[A-Za-z0-9_-]+\.[A-Za-z]+$`)

// Item is the domain entity managed by the service
type Item struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Email       string `json:"email"`
}

// NewItem builds a validated item that has not been persisted yet (ID is zero)
func NewItem(name, description, status, email string) (*Item, error) {
	item := &Item{
		Name:        strings.TrimSpace(name),
		Description: description,
		Status:      status,
		Email:       strings.TrimSpace(email),
	}

	if err := item.Validate(); err != nil {
		return nil, err
	}

	return item, nil
}

// Validate checks the fields a client is allowed to set. Name is expected to be
// trimmed already, as NewItem does.
// The returned error is a validation.Errors keyed by JSON field name.
func (i *Item) Validate() error {
	return validation.ValidateStruct(i,
		validation.Field(&i.Name,
			validation.Required.Error("name is mandatory"),
		),
		validation.Field(&i.Email,
			validation.Required.Error("email is mandatory"),
			validation.Match(emailPattern).Error("email should be valid"),
		),
	)
}

// MarkProcessed sets the status the batch run writes
func (i *Item) MarkProcessed() {
	i.Status = StatusProcessed
}
