package models

import "time"

// OfflineRecord wraps a Record with the local store's sync bookkeeping.
// ConflictData is non-nil exactly while a conflict is open for the record.
type OfflineRecord struct {
	Record
	IsOffline    bool      `json:"isOffline"`
	LastModified time.Time `json:"lastModified"`
	ConflictData *Record   `json:"conflictData,omitempty"`
}

// UserProfile is the locally cached snapshot of the user's account data,
// refreshed opportunistically while online.
type UserProfile struct {
	UserID      string    `json:"userId"`
	DisplayName string    `json:"displayName,omitempty"`
	Email       string    `json:"email,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// SyncSettings is the app-level singleton mutated after every drain and on
// connectivity transitions.
type SyncSettings struct {
	LastSyncTime time.Time `json:"lastSyncTime"`
	IsOnline     bool      `json:"isOnline"`
	AutoSync     bool      `json:"autoSync"`
}
