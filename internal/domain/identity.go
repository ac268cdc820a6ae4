package domain

// OwnerKind distinguishes the two cart storage domains.
type OwnerKind string

const (
	// OwnerAnonymous marks a device-local cart with no signed-in user.
	OwnerAnonymous OwnerKind = "anonymous"
	// OwnerUser marks a durable cart belonging to an authenticated user.
	OwnerUser OwnerKind = "user"
)

// OwnerRef is the identity context a cart belongs to. A cart never has both
// kinds of ownership; ownership only changes through the sign-in merge.
type OwnerRef struct {
	Kind OwnerKind `json:"kind" bson:"kind"`
	ID   string    `json:"id" bson:"id"`
}

// AnonymousRef returns the identity of a device-local cart.
func AnonymousRef(deviceID string) OwnerRef {
	return OwnerRef{Kind: OwnerAnonymous, ID: deviceID}
}

// UserRef returns the identity of an authenticated user's cart.
func UserRef(userID string) OwnerRef {
	return OwnerRef{Kind: OwnerUser, ID: userID}
}

// Key returns the storage key for this identity, e.g. "user:42".
func (r OwnerRef) Key() string {
	return string(r.Kind) + ":" + r.ID
}
