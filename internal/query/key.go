package query

import "github.com/google/uuid"

const (
	ScopeBoardTemplates  = "board-templates"
	ScopeBoardPacks      = "board-packs"
	ScopePackSections    = "pack-sections"
	ScopeSectionVersions = "section-versions"
)

// Key identifies a cached read: the entity scope plus the id the read is filtered by.
type Key struct {
	Scope string
	ID    uuid.UUID
}

func (k Key) String() string {
	return k.Scope + "/" + k.ID.String()
}

func BoardTemplates(boardID uuid.UUID) Key {
	return Key{Scope: ScopeBoardTemplates, ID: boardID}
}

func BoardPacks(boardID uuid.UUID) Key {
	return Key{Scope: ScopeBoardPacks, ID: boardID}
}

func PackSections(packID uuid.UUID) Key {
	return Key{Scope: ScopePackSections, ID: packID}
}

func SectionVersions(sectionID uuid.UUID) Key {
	return Key{Scope: ScopeSectionVersions, ID: sectionID}
}
