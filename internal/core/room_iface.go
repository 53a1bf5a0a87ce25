package core

import (
	"github.com/zonecast/synchub/internal/domain"
)

// RoomService owns the membership set of one broadcast group.
// It never touches transport resources.
type RoomService interface {
	Name() domain.RoomName
	MemberCount() int
	Members() []ConnID
	Has(id ConnID) bool

	AddMember(id ConnID)
	RemoveMember(id ConnID) bool
}

type RoomInfo struct {
	Name        domain.RoomName `json:"name"`
	MemberCount int             `json:"client_count"`
}
