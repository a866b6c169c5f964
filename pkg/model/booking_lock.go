package model

import "time"

// BookingLock is an advisory lock serializing booking creation per owner.
// The unique _id insert is the authoritative guard against the
// check-then-act race between the overlap read and the booking write.
type BookingLock struct {
	ID        string    `bson:"_id" json:"id"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
