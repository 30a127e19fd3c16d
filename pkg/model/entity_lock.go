package model

import "time"

// EntityLock is an advisory lock document serialising lifecycle operations on one entity
// across service instances. Expired locks are reaped by a TTL index.
type EntityLock struct {
	ID        string    `bson:"_id" json:"id"`
	Owner     string    `bson:"owner" json:"owner"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
