package database

// Descriptor is a fixed-length face descriptor produced by the embedding server.
type Descriptor []float64

// Identity is the metadata returned to callers when a descriptor matches.
type Identity struct {
	ID          int64
	DisplayName string
	AccessLevel int
}

// UserRecord represents one enrolled user as persisted in the usuarios table
type UserRecord struct {
	Identity
	Descriptor Descriptor
}

// StoredDescriptor pairs a loaded descriptor with the identity it belongs to.
type StoredDescriptor struct {
	Descriptor Descriptor
	Identity   Identity
}
