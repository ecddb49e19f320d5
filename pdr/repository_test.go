package pdr

import (
	"encoding/binary"
	"testing"
)

// makeRecord builds a minimal PDR: a 10-byte common header (handle
// filled in by Add) followed by pdrType-specific payload bytes.
func makeRecord(pdrType uint8, payload []byte) []byte {
	buf := make([]byte, commonHeaderSize+len(payload))
	buf[offsetHeaderVersion] = 1
	buf[offsetType] = pdrType
	binary.LittleEndian.PutUint16(buf[offsetRecordChangeNumber:], 0)
	binary.LittleEndian.PutUint16(buf[offsetDataLength:], uint16(len(payload)))
	copy(buf[commonHeaderSize:], payload)
	return buf
}

func sensorPayload(terminusHandle, sensorID uint16) []byte {
	p := make([]byte, 4)
	binary.LittleEndian.PutUint16(p[0:2], terminusHandle)
	binary.LittleEndian.PutUint16(p[2:4], sensorID)
	return p
}

func effecterPayload(terminusHandle, effecterID uint16) []byte {
	p := make([]byte, 4)
	binary.LittleEndian.PutUint16(p[0:2], terminusHandle)
	binary.LittleEndian.PutUint16(p[2:4], effecterID)
	return p
}

func fruPayload(terminusHandle, rsi, entityType, entityInstance, containerID uint16) []byte {
	p := make([]byte, 10)
	binary.LittleEndian.PutUint16(p[0:2], terminusHandle)
	binary.LittleEndian.PutUint16(p[2:4], rsi)
	binary.LittleEndian.PutUint16(p[4:6], entityType)
	binary.LittleEndian.PutUint16(p[6:8], entityInstance)
	binary.LittleEndian.PutUint16(p[8:10], containerID)
	return p
}

func assocPayload(containerID uint16, entityType, entityInstance, containerEntityContainerID uint16, children []uint16) []byte {
	p := make([]byte, assocOffsetChildren+len(children)*assocChildSize)
	binary.LittleEndian.PutUint16(p[assocOffsetContainerID:], containerID)
	p[assocOffsetType] = 1
	binary.LittleEndian.PutUint16(p[assocOffsetContainerEntity:], entityType)
	binary.LittleEndian.PutUint16(p[assocOffsetContainerEntity+2:], entityInstance)
	binary.LittleEndian.PutUint16(p[assocOffsetContainerEntity+4:], containerEntityContainerID)
	p[assocOffsetNumChildren] = uint8(len(children))
	for i, c := range children {
		off := assocOffsetChildren + i*assocChildSize + 4
		binary.LittleEndian.PutUint16(p[off:], c)
	}
	return p
}

func TestRepositoryAddAssignsAndRejectsDuplicateHandles(t *testing.T) {
	repo := New()

	var h1 uint32
	if err := repo.Add(makeRecord(TypeStateSensor, sensorPayload(1, 100)), false, 1, &h1); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if h1 != 1 {
		t.Fatalf("first assigned handle = %d, want 1", h1)
	}

	var h2 uint32
	if err := repo.Add(makeRecord(TypeStateSensor, sensorPayload(1, 200)), false, 1, &h2); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if h2 != 2 {
		t.Fatalf("second assigned handle = %d, want 2", h2)
	}

	dup := h1
	if err := repo.Add(makeRecord(TypeStateSensor, sensorPayload(1, 300)), false, 1, &dup); err != ErrDuplicateHandle {
		t.Fatalf("Add with duplicate handle = %v, want ErrDuplicateHandle", err)
	}

	if err := repo.Add(nil, false, 1, &h1); err != ErrInvalidArgument {
		t.Fatalf("Add with short data = %v, want ErrInvalidArgument", err)
	}

	if got := repo.RecordCount(); got != 2 {
		t.Fatalf("RecordCount = %d, want 2", got)
	}
}

func TestRepositoryFindRecordAndNext(t *testing.T) {
	repo := New()
	var handles []uint32
	for i := 0; i < 3; i++ {
		var h uint32
		if err := repo.Add(makeRecord(TypeStateSensor, sensorPayload(1, uint16(i))), false, 1, &h); err != nil {
			t.Fatalf("Add: %v", err)
		}
		handles = append(handles, h)
	}

	first, next := repo.FindRecord(0)
	if first == nil || first.Handle != handles[0] {
		t.Fatalf("FindRecord(0) = %v, want handle %d", first, handles[0])
	}
	if next != handles[1] {
		t.Fatalf("FindRecord(0) next = %d, want %d", next, handles[1])
	}

	rec, _ := repo.FindRecord(handles[1])
	if rec == nil || rec.Handle != handles[1] {
		t.Fatalf("FindRecord(%d) = %v", handles[1], rec)
	}

	if got, _ := repo.FindRecord(9999); got != nil {
		t.Fatalf("FindRecord(missing) = %v, want nil", got)
	}

	last := repo.GetNextRecord(rec)
	if last == nil || last.Handle != handles[2] {
		t.Fatalf("GetNextRecord = %v, want handle %d", last, handles[2])
	}
	if got := repo.GetNextRecord(last); got != nil {
		t.Fatalf("GetNextRecord(last) = %v, want nil", got)
	}
}

func TestRepositoryFindRecordByType(t *testing.T) {
	repo := New()
	var h1, h2, h3 uint32
	must(t, repo.Add(makeRecord(TypeStateSensor, sensorPayload(1, 1)), false, 1, &h1))
	must(t, repo.Add(makeRecord(TypeStateEffecter, effecterPayload(1, 1)), false, 1, &h2))
	must(t, repo.Add(makeRecord(TypeStateSensor, sensorPayload(1, 2)), false, 1, &h3))

	rec := repo.FindRecordByType(TypeStateSensor, nil)
	if rec == nil || rec.Handle != h1 {
		t.Fatalf("FindRecordByType first = %v, want handle %d", rec, h1)
	}
	rec = repo.FindRecordByType(TypeStateSensor, rec)
	if rec == nil || rec.Handle != h3 {
		t.Fatalf("FindRecordByType second = %v, want handle %d", rec, h3)
	}
	if got := repo.FindRecordByType(TypeStateSensor, rec); got != nil {
		t.Fatalf("FindRecordByType exhausted = %v, want nil", got)
	}
}

func TestRepositoryFindLastInRange(t *testing.T) {
	repo := New()
	var handles []uint32
	for i := 0; i < 5; i++ {
		var h uint32
		must(t, repo.Add(makeRecord(TypeStateSensor, sensorPayload(1, uint16(i))), false, 1, &h))
		handles = append(handles, h)
	}

	got := repo.FindLastInRange(handles[1], handles[3])
	if got == nil || got.Handle != handles[3] {
		t.Fatalf("FindLastInRange = %v, want handle %d", got, handles[3])
	}

	if got := repo.FindLastInRange(1000, 2000); got != nil {
		t.Fatalf("FindLastInRange(out of range) = %v, want nil", got)
	}
}

func TestRepositoryFRURecordSetFindByRSI(t *testing.T) {
	repo := New()
	var h uint32
	must(t, repo.Add(makeRecord(TypeFRURecordSet, fruPayload(1, 42, 5, 1, 9)), false, 1, &h))

	entry, ok := repo.FRURecordSetFindByRSI(42)
	if !ok {
		t.Fatalf("FRURecordSetFindByRSI(42) not found")
	}
	if entry.EntityType != 5 || entry.EntityInstanceNum != 1 || entry.ContainerID != 9 {
		t.Fatalf("entry = %+v, want EntityType=5 EntityInstanceNum=1 ContainerID=9", entry)
	}

	if _, ok := repo.FRURecordSetFindByRSI(999); ok {
		t.Fatalf("FRURecordSetFindByRSI(missing) found, want not found")
	}
}

func TestRepositoryDeleteByRecordHandle(t *testing.T) {
	repo := New()
	var h uint32
	must(t, repo.Add(makeRecord(TypeStateSensor, sensorPayload(1, 1)), false, 1, &h))

	if err := repo.DeleteByRecordHandle(h, true); err != ErrRecordNotFound {
		t.Fatalf("DeleteByRecordHandle wrong remote flag = %v, want ErrRecordNotFound", err)
	}
	if err := repo.DeleteByRecordHandle(h, false); err != nil {
		t.Fatalf("DeleteByRecordHandle: %v", err)
	}
	if repo.RecordCount() != 0 {
		t.Fatalf("RecordCount after delete = %d, want 0", repo.RecordCount())
	}
	if err := repo.DeleteByRecordHandle(h, false); err != ErrRecordNotFound {
		t.Fatalf("DeleteByRecordHandle again = %v, want ErrRecordNotFound", err)
	}
}

func TestRepositoryDeleteBySensorAndEffecterID(t *testing.T) {
	repo := New()
	var h1, h2 uint32
	must(t, repo.Add(makeRecord(TypeStateSensor, sensorPayload(1, 55)), false, 1, &h1))
	must(t, repo.Add(makeRecord(TypeStateEffecter, effecterPayload(1, 66)), false, 1, &h2))

	handle, err := repo.DeleteBySensorID(55, false)
	if err != nil {
		t.Fatalf("DeleteBySensorID: %v", err)
	}
	if handle != h1 {
		t.Fatalf("DeleteBySensorID handle = %d, want %d", handle, h1)
	}
	if _, err := repo.DeleteBySensorID(55, false); err != ErrRecordNotFound {
		t.Fatalf("DeleteBySensorID again = %v, want ErrRecordNotFound", err)
	}

	handle, err = repo.DeleteByEffecterID(66, false)
	if err != nil {
		t.Fatalf("DeleteByEffecterID: %v", err)
	}
	if handle != h2 {
		t.Fatalf("DeleteByEffecterID handle = %d, want %d", handle, h2)
	}
}

func TestRepositoryDeleteByIDMalformedRecord(t *testing.T) {
	repo := New()
	var h uint32
	must(t, repo.Add(makeRecord(TypeStateSensor, []byte{0x01}), false, 1, &h))

	if _, err := repo.DeleteBySensorID(1, false); err != ErrMalformedRecord {
		t.Fatalf("DeleteBySensorID(undersized) = %v, want ErrMalformedRecord", err)
	}
}

func TestRepositoryFindChildContainerIDIndexRangeExclude(t *testing.T) {
	repo := New()
	var excluded, kept uint32
	must(t, repo.Add(makeRecord(TypeEntityAssociation, assocPayload(1, 10, 1, 0, []uint16{100, 200})), false, 1, &excluded))
	must(t, repo.Add(makeRecord(TypeEntityAssociation, assocPayload(2, 10, 1, 0, []uint16{300})), false, 1, &kept))

	if got, ok := repo.FindChildContainerIDIndexRangeExclude(10, 1, 0, excluded, excluded); !ok || got != 300 {
		t.Fatalf("FindChildContainerIDIndexRangeExclude = (%d, %v), want (300, true)", got, ok)
	}

	if _, ok := repo.FindChildContainerIDIndexRangeExclude(10, 1, 0, excluded, kept); ok {
		t.Fatalf("FindChildContainerIDIndexRangeExclude within full exclude range found a match, want none")
	}

	if _, ok := repo.FindChildContainerIDIndexRangeExclude(10, 1, 5, 0, 0); ok {
		t.Fatalf("FindChildContainerIDIndexRangeExclude(out-of-range child index) found a match, want none")
	}
}

func TestRepositoryBulkRemoval(t *testing.T) {
	repo := New()
	var h1, h2, h3 uint32
	must(t, repo.Add(makeRecord(TypeStateSensor, sensorPayload(1, 1)), false, 1, &h1))
	must(t, repo.Add(makeRecord(TypeStateSensor, sensorPayload(2, 2)), true, 2, &h2))
	must(t, repo.Add(makeRecord(TypeStateSensor, sensorPayload(1, 3)), true, 1, &h3))

	repo.RemovePDRsByTerminusHandle(1)
	if repo.RecordCount() != 1 {
		t.Fatalf("RecordCount after RemovePDRsByTerminusHandle = %d, want 1", repo.RecordCount())
	}
	if rec, _ := repo.FindRecord(h2); rec == nil {
		t.Fatalf("expected handle %d to survive RemovePDRsByTerminusHandle(1)", h2)
	}

	repo.RemoveRemotePDRs()
	if repo.RecordCount() != 0 {
		t.Fatalf("RecordCount after RemoveRemotePDRs = %d, want 0", repo.RecordCount())
	}
}

func TestRepositoryRepoSize(t *testing.T) {
	repo := New()
	var h uint32
	data := makeRecord(TypeStateSensor, sensorPayload(1, 1))
	must(t, repo.Add(data, false, 1, &h))
	if got := repo.RepoSize(); got != len(data) {
		t.Fatalf("RepoSize = %d, want %d", got, len(data))
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
