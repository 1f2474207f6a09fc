package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type MembershipStatus string

const (
	MembershipStatusActive  MembershipStatus = "active"
	MembershipStatusLocked  MembershipStatus = "locked"
	MembershipStatusRemoved MembershipStatus = "removed"
)

func (s MembershipStatus) String() string { return string(s) }

// Membership is the durable student-club relationship. Removed rows are
// terminal; re-joining produces a new row.
type Membership struct {
	Id              uuid.UUID
	StudentId       uuid.UUID
	ClubId          uuid.UUID
	RequestId       *uuid.UUID
	Status          MembershipStatus
	JoinDate        *time.Time
	Note            string
	StatusChangedAt time.Time
	Version         int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func NewActiveMembership(studentId, clubId, requestId uuid.UUID, now time.Time) *Membership {
	return &Membership{
		Id:              uuid.New(),
		StudentId:       studentId,
		ClubId:          clubId,
		RequestId:       &requestId,
		Status:          MembershipStatusActive,
		JoinDate:        &now,
		StatusChangedAt: now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (m *Membership) IsCurrent() bool {
	return m.Status != MembershipStatusRemoved
}

func (m *Membership) Lock(note string, now time.Time) error {
	if m.Status != MembershipStatusActive {
		return invalidTransition("membership", m.Status, MembershipStatusLocked)
	}
	m.setStatus(MembershipStatusLocked, note, now)
	return nil
}

func (m *Membership) Unlock(now time.Time) error {
	if m.Status != MembershipStatusLocked {
		return invalidTransition("membership", m.Status, MembershipStatusActive)
	}
	m.setStatus(MembershipStatusActive, "", now)
	return nil
}

func (m *Membership) Remove(note string, now time.Time) error {
	if m.Status != MembershipStatusActive && m.Status != MembershipStatusLocked {
		return invalidTransition("membership", m.Status, MembershipStatusRemoved)
	}
	m.setStatus(MembershipStatusRemoved, note, now)
	return nil
}

func (m *Membership) setStatus(status MembershipStatus, note string, now time.Time) {
	m.Status = status
	m.Note = strings.TrimSpace(note)
	m.StatusChangedAt = now
	m.UpdatedAt = now
}
