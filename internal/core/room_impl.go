package core

import (
	"sort"

	"github.com/rs/zerolog/log"
	"github.com/zonecast/synchub/internal/domain"
)

// roomImpl is an in-memory member set.
// It is not safe for concurrent use; the registry lock guards it.
type roomImpl struct {
	name    domain.RoomName
	members map[ConnID]struct{}
}

func NewRoomService(name domain.RoomName) RoomService {
	return &roomImpl{
		name:    name,
		members: make(map[ConnID]struct{}),
	}
}

func (r *roomImpl) Name() domain.RoomName { return r.name }

func (r *roomImpl) MemberCount() int { return len(r.members) }

func (r *roomImpl) Has(id ConnID) bool {
	_, ok := r.members[id]
	return ok
}

func (r *roomImpl) AddMember(id ConnID) {
	r.members[id] = struct{}{}
	log.Debug().Str("module", "core.room").Str("room", string(r.name)).Stringer("conn", id).Msg("member added")
}

func (r *roomImpl) RemoveMember(id ConnID) bool {
	if _, ok := r.members[id]; !ok {
		return false
	}
	delete(r.members, id)
	log.Debug().Str("module", "core.room").Str("room", string(r.name)).Stringer("conn", id).Msg("member removed")
	return true
}

// Members returns the member ids in ascending order.
func (r *roomImpl) Members() []ConnID {
	out := make([]ConnID, 0, len(r.members))
	for id := range r.members {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
