// Package pdr implements an in-memory repository of Platform
// Descriptor Records (DSP0248), grounded on
// _examples/original_source/include/libpldm/pdr.h's pldm_pdr API.
// Records are opaque byte slices whose common 10-byte header (record
// handle, header version, PDR type, record change number, data
// length) this package interprets just enough to dispatch type-scoped
// operations; the PDR-type-specific payload is left to callers.
package pdr

import "encoding/binary"

// Common PDR header field offsets, per DSP0248 table 19.
const (
	offsetRecordHandle       = 0
	offsetHeaderVersion      = 4
	offsetType               = 5
	offsetRecordChangeNumber = 6
	offsetDataLength         = 8
	commonHeaderSize         = 10
)

// PDR type numbers this repository knows how to interpret for
// ID-based deletion and entity-association lookups (DSP0248 table 20).
const (
	TypeStateSensor       uint8 = 4
	TypeStateEffecter     uint8 = 11
	TypeEntityAssociation uint8 = 15
	TypeFRURecordSet      uint8 = 20
)

// Offsets, relative to the start of a PDR-type-specific payload (i.e.
// after the common 10-byte header), of the fields this package reads.
const (
	offsetSensorIDInSensorPDR     = 2 // terminus handle (2) precedes it
	offsetEffecterIDInEffecterPDR = 2
)

// Record is one stored PDR: Data always carries the full record bytes
// including the common header, with the record handle kept in sync at
// Data[0:4].
type Record struct {
	Handle         uint32
	TerminusHandle uint16
	IsRemote       bool
	Data           []byte
}

// Type returns the record's PDR type (DSP0248 table 20), or 0 if Data
// is too short to carry a common header.
func (r *Record) Type() uint8 {
	if len(r.Data) < commonHeaderSize {
		return 0
	}
	return r.Data[offsetType]
}

// Repository is an insertion-ordered, single-writer store of PDR
// records, grounded on pldm_pdr's tail-append linked list of records:
// new records always land at the end regardless of the handle they
// end up carrying, and every scan walks in that same insertion order.
type Repository struct {
	records []*Record
}

// New returns an empty PDR repository (pldm_pdr_init).
func New() *Repository {
	return &Repository{}
}

func (repo *Repository) find(handle uint32) (int, *Record) {
	for i, r := range repo.records {
		if r.Handle == handle {
			return i, r
		}
	}
	return -1, nil
}

func (repo *Repository) maxHandle() uint32 {
	var max uint32
	for _, r := range repo.records {
		if r.Handle > max {
			max = r.Handle
		}
	}
	return max
}

// Add copies data into repository-owned storage and appends it,
// honoring *handle: if it is 0, a fresh handle is assigned
// (max existing handle + 1) and written back into *handle and into
// the copied record's header; otherwise the supplied handle is used
// and a duplicate is rejected (pldm_pdr_add).
func (repo *Repository) Add(data []byte, isRemote bool, terminusHandle uint16, handle *uint32) error {
	if len(data) < commonHeaderSize || handle == nil {
		return ErrInvalidArgument
	}

	assigned := *handle
	if assigned == 0 {
		assigned = repo.maxHandle() + 1
		if assigned == 0 {
			return ErrHandleOverflow
		}
	} else if _, existing := repo.find(assigned); existing != nil {
		return ErrDuplicateHandle
	}

	owned := make([]byte, len(data))
	copy(owned, data)
	binary.LittleEndian.PutUint32(owned[offsetRecordHandle:], assigned)

	repo.records = append(repo.records, &Record{
		Handle:         assigned,
		TerminusHandle: terminusHandle,
		IsRemote:       isRemote,
		Data:           owned,
	})

	*handle = assigned
	return nil
}

// RecordCount returns the number of stored records
// (pldm_pdr_get_record_count).
func (repo *Repository) RecordCount() int { return len(repo.records) }

// RepoSize returns the sum of every stored record's byte length
// (pldm_pdr_get_repo_size).
func (repo *Repository) RepoSize() int {
	total := 0
	for _, r := range repo.records {
		total += len(r.Data)
	}
	return total
}

// FindRecord performs a linear scan for handle, returning the record
// and the handle of the record immediately after it in insertion
// order (0 at the end). handle == 0 returns the first inserted record
// (pldm_pdr_find_record).
func (repo *Repository) FindRecord(handle uint32) (*Record, uint32) {
	if len(repo.records) == 0 {
		return nil, 0
	}
	idx := 0
	if handle != 0 {
		var ok *Record
		idx, ok = repo.find(handle)
		if ok == nil {
			return nil, 0
		}
	}
	next := uint32(0)
	if idx+1 < len(repo.records) {
		next = repo.records[idx+1].Handle
	}
	return repo.records[idx], next
}

// GetNextRecord returns the record inserted immediately after record,
// or nil at the end (pldm_pdr_get_next_record).
func (repo *Repository) GetNextRecord(record *Record) *Record {
	if record == nil {
		return nil
	}
	idx, found := repo.find(record.Handle)
	if found != record {
		return nil
	}
	if idx+1 >= len(repo.records) {
		return nil
	}
	return repo.records[idx+1]
}

// FindRecordByType scans, in insertion order, for the first record of
// pdrType inserted after after (or from the start if after is nil)
// (pldm_pdr_find_record_by_type).
func (repo *Repository) FindRecordByType(pdrType uint8, after *Record) *Record {
	start := 0
	if after != nil {
		idx, found := repo.find(after.Handle)
		if found != after {
			return nil
		}
		start = idx + 1
	}
	for i := start; i < len(repo.records); i++ {
		if repo.records[i].Type() == pdrType {
			return repo.records[i]
		}
	}
	return nil
}

// FindLastInRange returns the record with the highest handle within
// [lo, hi], or nil if none exists (pldm_pdr_find_last_in_range).
func (repo *Repository) FindLastInRange(lo, hi uint32) *Record {
	var found *Record
	for _, r := range repo.records {
		if r.Handle < lo || r.Handle > hi {
			continue
		}
		if found == nil || r.Handle > found.Handle {
			found = r
		}
	}
	return found
}

// FRURecordSetEntry is the decoded identity fields of a FRU record
// set PDR (type 20).
type FRURecordSetEntry struct {
	TerminusHandle    uint16
	EntityType        uint16
	EntityInstanceNum uint16
	ContainerID       uint16
}

// FRURecordSetFindByRSI scans FRU record set PDRs for the one whose
// FRU record set identifier matches rsi
// (pldm_pdr_fru_record_set_find_by_rsi). The FRU record set PDR
// payload (after the common header) is: terminus handle (2), FRU RSI
// (2), entity type (2), entity instance num (2), container id (2).
func (repo *Repository) FRURecordSetFindByRSI(rsi uint16) (FRURecordSetEntry, bool) {
	for _, r := range repo.records {
		if r.Type() != TypeFRURecordSet {
			continue
		}
		body := r.Data[commonHeaderSize:]
		if len(body) < 10 {
			continue
		}
		gotRSI := binary.LittleEndian.Uint16(body[2:4])
		if gotRSI != rsi {
			continue
		}
		return FRURecordSetEntry{
			TerminusHandle:    binary.LittleEndian.Uint16(body[0:2]),
			EntityType:        binary.LittleEndian.Uint16(body[4:6]),
			EntityInstanceNum: binary.LittleEndian.Uint16(body[6:8]),
			ContainerID:       binary.LittleEndian.Uint16(body[8:10]),
		}, true
	}
	return FRURecordSetEntry{}, false
}

// DeleteByRecordHandle unlinks the record matching handle, rejecting a
// remote-flag mismatch as not-found (pldm_pdr_delete_by_record_handle).
func (repo *Repository) DeleteByRecordHandle(handle uint32, isRemote bool) error {
	idx, rec := repo.find(handle)
	if rec == nil {
		return ErrRecordNotFound
	}
	if rec.IsRemote != isRemote {
		return ErrRecordNotFound
	}
	repo.records = append(repo.records[:idx], repo.records[idx+1:]...)
	return nil
}

func (repo *Repository) deleteByID(pdrType uint8, idOffset int, id uint16, isRemote bool) (uint32, error) {
	for i, r := range repo.records {
		if r.Type() != pdrType || r.IsRemote != isRemote {
			continue
		}
		body := r.Data[commonHeaderSize:]
		if len(body) < idOffset+2 {
			return 0, ErrMalformedRecord
		}
		if binary.LittleEndian.Uint16(body[idOffset:idOffset+2]) != id {
			continue
		}
		handle := r.Handle
		repo.records = append(repo.records[:i], repo.records[i+1:]...)
		return handle, nil
	}
	return 0, ErrRecordNotFound
}

// DeleteBySensorID walks state-sensor PDRs for one whose sensor ID
// matches sensorID and deletes it, surfacing ErrMalformedRecord for an
// undersized PDR of that type rather than silently skipping it
// (pldm_pdr_delete_by_sensor_id).
func (repo *Repository) DeleteBySensorID(sensorID uint16, isRemote bool) (uint32, error) {
	return repo.deleteByID(TypeStateSensor, offsetSensorIDInSensorPDR, sensorID, isRemote)
}

// DeleteByEffecterID is DeleteBySensorID's effecter-PDR counterpart
// (pldm_pdr_delete_by_effecter_id).
func (repo *Repository) DeleteByEffecterID(effecterID uint16, isRemote bool) (uint32, error) {
	return repo.deleteByID(TypeStateEffecter, offsetEffecterIDInEffecterPDR, effecterID, isRemote)
}

// entity association PDR payload field offsets, relative to the start
// of the payload (after the common 10-byte header). Layout: container
// id (2), association type (1), container entity type/instance/cid (6),
// num children (1), then num-children * (entity type, instance, cid).
const (
	assocOffsetContainerID     = 0
	assocOffsetType            = 2
	assocOffsetContainerEntity = 3
	assocOffsetNumChildren     = 9
	assocOffsetChildren        = 10
	assocChildSize             = 6
)

// FindChildContainerIDIndexRangeExclude scans entity-association PDRs
// whose record handle falls outside [excludeLo, excludeHi] for one
// whose container entity matches (entityType, entityInstance) and
// returns the childIndex-th child's container ID
// (pldm_pdr_find_child_container_id_index_range_exclude).
func (repo *Repository) FindChildContainerIDIndexRangeExclude(entityType, entityInstance uint16, childIndex uint8, excludeLo, excludeHi uint32) (uint16, bool) {
	for _, r := range repo.records {
		if r.Type() != TypeEntityAssociation {
			continue
		}
		if r.Handle >= excludeLo && r.Handle <= excludeHi {
			continue
		}
		body := r.Data[commonHeaderSize:]
		if len(body) < assocOffsetChildren {
			continue
		}
		gotType := binary.LittleEndian.Uint16(body[assocOffsetContainerEntity:])
		gotInstance := binary.LittleEndian.Uint16(body[assocOffsetContainerEntity+2:])
		if gotType != entityType || gotInstance != entityInstance {
			continue
		}
		numChildren := body[assocOffsetNumChildren]
		if childIndex >= numChildren {
			continue
		}
		childOffset := assocOffsetChildren + int(childIndex)*assocChildSize + 4
		if len(body) < childOffset+2 {
			continue
		}
		return binary.LittleEndian.Uint16(body[childOffset:]), true
	}
	return 0, false
}

// RemovePDRsByTerminusHandle bulk-removes every record (remote or
// local) carrying terminusHandle
// (pldm_pdr_remove_pdrs_by_terminus_handle).
func (repo *Repository) RemovePDRsByTerminusHandle(terminusHandle uint16) {
	kept := repo.records[:0]
	for _, r := range repo.records {
		if r.TerminusHandle == terminusHandle {
			continue
		}
		kept = append(kept, r)
	}
	repo.records = kept
}

// RemoveRemotePDRs bulk-removes every record with IsRemote set
// (pldm_pdr_remove_remote_pdrs).
func (repo *Repository) RemoveRemotePDRs() {
	kept := repo.records[:0]
	for _, r := range repo.records {
		if r.IsRemote {
			continue
		}
		kept = append(kept, r)
	}
	repo.records = kept
}
