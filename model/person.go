// model/person.go
package model

import "time"

// Person is a library member. Opaque to the circulation core beyond
// existence checks.
type Person struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
