package model

import "time"

type User struct {
	ID        string      `json:"id,omitempty" bson:"_id,omitempty"`
	GoogleID  string      `json:"google_id" bson:"google_id"`
	Email     string      `json:"email" bson:"email"`
	Name      string      `json:"name" bson:"name"`
	Picture   string      `json:"picture,omitempty" bson:"picture,omitempty"`
	Calendar  *Credential `json:"-" bson:"calendar,omitempty"`
	CreatedAt time.Time   `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time   `json:"updated_at" bson:"updated_at"`
}

// Credential is the stored Google Calendar authorization for an owner.
// Absence means the owner never linked a calendar and the external
// conflict check is skipped.
type Credential struct {
	AccessToken  string    `json:"-" bson:"access_token"`
	RefreshToken string    `json:"-" bson:"refresh_token,omitempty"`
	Expiry       time.Time `json:"-" bson:"expiry"`
}
