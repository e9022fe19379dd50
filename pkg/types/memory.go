// Package types defines the core data structures for the agent memory
// engine: memories, their URI paths, links, snapshots, and embeddings.
package types

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// MemoryType classifies the lifecycle and durability of a memory.
type MemoryType string

const (
	TypeIdentity  MemoryType = "identity"
	TypeEmotion   MemoryType = "emotion"
	TypeKnowledge MemoryType = "knowledge"
	TypeEvent     MemoryType = "event"
)

// IsValid reports whether t is one of the four recognised memory types.
func (t MemoryType) IsValid() bool {
	switch t {
	case TypeIdentity, TypeEmotion, TypeKnowledge, TypeEvent:
		return true
	}
	return false
}

// DefaultPriority returns the priority a memory of this type receives when
// none is supplied explicitly.
func (t MemoryType) DefaultPriority() int {
	switch t {
	case TypeIdentity:
		return 0
	case TypeEmotion:
		return 1
	case TypeKnowledge:
		return 2
	case TypeEvent:
		return 3
	}
	return 3
}

// infiniteStability is the sentinel stored for priority-0 memories, which
// never decay. It is large enough that exp(-t/stability) stays at 1.0 for
// any realistic elapsed time.
const infiniteStability = 999999.0

// InitialStability returns the stability (decay half-life parameter) a
// memory of this priority starts with.
func InitialStability(priority int) float64 {
	switch priority {
	case 0:
		return infiniteStability
	case 1:
		return 365
	case 2:
		return 90
	default:
		return 14
	}
}

// VitalityFloor returns the minimum vitality a memory of this priority may
// ever decay to.
func VitalityFloor(priority int) float64 {
	switch priority {
	case 0:
		return 1.0
	case 1:
		return 0.3
	case 2:
		return 0.1
	default:
		return 0.0
	}
}

// Memory is the atomic unit of durable storage.
type Memory struct {
	ID            string     `json:"id"`
	Content       string     `json:"content"`
	Type          MemoryType `json:"type"`
	Priority      int        `json:"priority"`
	EmotionVal    float64    `json:"emotion_val"`
	Vitality      float64    `json:"vitality"`
	Stability     float64    `json:"stability"`
	AccessCount   int        `json:"access_count"`
	LastAccessed  *time.Time `json:"last_accessed,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	Source        string     `json:"source,omitempty"`
	AgentID       string     `json:"agent_id"`
	Hash          string     `json:"hash"`
}

// ContentHash computes the 16-hex-character dedup hash used for
// (hash, agent_id) uniqueness: the first 16 hex characters of
// sha256(trim(content)).
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(content)))
	return hex.EncodeToString(sum[:])[:16]
}

// NewMemory builds a Memory with all spec-mandated defaults applied:
// default priority from type, initial stability from priority, vitality
// 1.0, and the content hash.
func NewMemory(agentID, content string, memType MemoryType, priority *int) *Memory {
	p := memType.DefaultPriority()
	if priority != nil {
		p = *priority
	}
	now := time.Now().UTC()
	return &Memory{
		Content:   content,
		Type:      memType,
		Priority:  p,
		Vitality:  1.0,
		Stability: InitialStability(p),
		CreatedAt: now,
		UpdatedAt: now,
		AgentID:   agentID,
		Hash:      ContentHash(content),
	}
}
