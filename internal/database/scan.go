package database

import (
	"database/sql"
	"fmt"
)

// ScanResult holds the outcome of ScanDescriptors.
type ScanResult struct {
	Descriptors []StoredDescriptor
	// Skipped lists ids of rows whose descriptor was null or malformed.
	Skipped []int64
}

// ScanDescriptors reads rows of (id, nome, nivel_acesso, codificacao_facial).
// Rows with a null or undecodable blob are recorded in Skipped instead of
// failing the scan.
func ScanDescriptors(rows *sql.Rows) (*ScanResult, error) {
	result := &ScanResult{Descriptors: []StoredDescriptor{}}

	for rows.Next() {
		var (
			id    int64
			name  string
			level int
			blob  []byte
		)
		if err := rows.Scan(&id, &name, &level, &blob); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}

		if blob == nil {
			result.Skipped = append(result.Skipped, id)
			continue
		}
		d, err := DecodeDescriptor(blob)
		if err != nil {
			result.Skipped = append(result.Skipped, id)
			continue
		}

		result.Descriptors = append(result.Descriptors, StoredDescriptor{
			Descriptor: d,
			Identity: Identity{
				ID:          id,
				DisplayName: name,
				AccessLevel: level,
			},
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return result, nil
}
