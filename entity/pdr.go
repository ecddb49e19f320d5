package entity

import (
	"encoding/binary"

	"github.com/openbmc/go-pldm/pdr"
)

// Entity-association PDR payload field offsets, relative to the start
// of the payload (after the common 10-byte PDR header). Layout:
// container id (2), association type (1), container entity
// type/instance/container-id (6), num children (1), then
// num-children * (entity type, instance, container-id), each 6 bytes.
const (
	assocContainerID      = 0
	assocType             = 2
	assocContainerEntity  = 3
	assocNumChildren      = 9
	assocChildrenStart    = 10
	assocChildSize        = 6
)

func encodeEntity(dst []byte, e Entity) {
	binary.LittleEndian.PutUint16(dst[0:2], e.Type)
	binary.LittleEndian.PutUint16(dst[2:4], e.InstanceNum)
	binary.LittleEndian.PutUint16(dst[4:6], e.ContainerID)
}

func decodeEntity(src []byte) Entity {
	return Entity{
		Type:        binary.LittleEndian.Uint16(src[0:2]),
		InstanceNum: binary.LittleEndian.Uint16(src[2:4]),
		ContainerID: binary.LittleEndian.Uint16(src[4:6]),
	}
}

// encodeAssociationPDR builds a complete PDR record (common header +
// association payload) for container with children linked by assoc.
// The record handle field is left zero; callers pass the result to
// repo.Add, which fills it in.
func encodeAssociationPDR(container Entity, assoc uint8, children []Entity) []byte {
	payloadLen := assocChildrenStart + len(children)*assocChildSize
	buf := make([]byte, 10+payloadLen)
	buf[4] = 1 // header version
	buf[5] = pdr.TypeEntityAssociation
	binary.LittleEndian.PutUint16(buf[8:10], uint16(payloadLen))

	body := buf[10:]
	binary.LittleEndian.PutUint16(body[assocContainerID:], container.ContainerID)
	body[assocType] = assoc
	encodeEntity(body[assocContainerEntity:], container)
	body[assocNumChildren] = uint8(len(children))
	for i, c := range children {
		off := assocChildrenStart + i*assocChildSize
		encodeEntity(body[off:], c)
	}
	return buf
}

// AssociationPDRAdd emits, for every node with at least one child, one
// association PDR per non-empty (node, assoc-type) pair, in
// logical-before-physical order, with handles auto-assigned by repo
// (pldm_entity_association_pdr_add).
func (t *Tree) AssociationPDRAdd(repo *pdr.Repository, isRemote bool, terminusHandle uint16) error {
	for i, n := range t.nodes {
		if n == nil {
			continue
		}
		for _, assoc := range assocEmitOrder {
			kids := n.children(assoc)
			if len(kids) == 0 {
				continue
			}
			if err := t.emitAssociationPDR(repo, i, assoc, isRemote, terminusHandle, 0); err != nil {
				return err
			}
		}
	}
	return nil
}

// AssociationPDRAddFromNodeWithRecordHandle emits the single
// association PDR for (node, assoc) using the caller-supplied record
// handle (pldm_entity_association_pdr_add_from_node).
func (t *Tree) AssociationPDRAddFromNodeWithRecordHandle(nodeIdx int, assoc uint8, repo *pdr.Repository, isRemote bool, terminusHandle uint16, recordHandle uint32) error {
	if !t.valid(nodeIdx) {
		return ErrInvalidArgument
	}
	return t.emitAssociationPDR(repo, nodeIdx, assoc, isRemote, terminusHandle, recordHandle)
}

func (t *Tree) emitAssociationPDR(repo *pdr.Repository, nodeIdx int, assoc uint8, isRemote bool, terminusHandle uint16, recordHandle uint32) error {
	n := t.nodes[nodeIdx]
	kids := n.children(assoc)
	children := make([]Entity, len(kids))
	for i, c := range kids {
		children[i] = t.nodes[c].entity
	}
	data := encodeAssociationPDR(n.entity, assoc, children)
	h := recordHandle
	return repo.Add(data, isRemote, terminusHandle, &h)
}

// AssociationPDRAddContainedEntityToRemotePDR appends child to the
// association PDR already stored at parentRecordHandle, growing its
// child list and updating the header's data length
// (pldm_entity_association_pdr_add_contained_entity).
func AssociationPDRAddContainedEntityToRemotePDR(repo *pdr.Repository, child Entity, parentRecordHandle uint32) error {
	rec, _ := repo.FindRecord(parentRecordHandle)
	if rec == nil || rec.Type() != pdr.TypeEntityAssociation {
		return ErrRecordNotFound
	}
	body := rec.Data[10:]
	if len(body) < assocChildrenStart {
		return ErrMalformedRecord
	}
	numChildren := body[assocNumChildren]

	grown := make([]byte, len(rec.Data)+assocChildSize)
	copy(grown, rec.Data)
	encodeEntity(grown[10+assocChildrenStart+int(numChildren)*assocChildSize:], child)
	grown[10+assocNumChildren] = numChildren + 1
	binary.LittleEndian.PutUint16(grown[8:10], uint16(len(grown)-10))
	rec.Data = grown
	return nil
}

// AssociationPDRRemoveContainedEntity removes child from the
// association PDR found via ioRecordHandle (or, if it is 0, the first
// association PDR containing child), deleting the whole PDR if the
// removal empties it. The record handle actually modified (or
// deleted) is returned (pldm_entity_association_pdr_remove_contained_entity).
func AssociationPDRRemoveContainedEntity(repo *pdr.Repository, child Entity, isRemote bool, ioRecordHandle uint32) (uint32, error) {
	var rec *pdr.Record
	if ioRecordHandle != 0 {
		rec, _ = repo.FindRecord(ioRecordHandle)
		if rec == nil || rec.Type() != pdr.TypeEntityAssociation {
			return 0, ErrRecordNotFound
		}
	} else {
		r := repo.FindRecordByType(pdr.TypeEntityAssociation, nil)
		for r != nil {
			if recordContainsChild(r, child) {
				rec = r
				break
			}
			r = repo.FindRecordByType(pdr.TypeEntityAssociation, r)
		}
		if rec == nil {
			return 0, ErrRecordNotFound
		}
	}

	body := rec.Data[10:]
	numChildren := int(body[assocNumChildren])
	foundAt := -1
	for i := 0; i < numChildren; i++ {
		off := assocChildrenStart + i*assocChildSize
		if decodeEntity(body[off:]) == child {
			foundAt = i
			break
		}
	}
	if foundAt < 0 {
		return 0, ErrRecordNotFound
	}

	if numChildren == 1 {
		handle := rec.Handle
		return handle, repo.DeleteByRecordHandle(handle, isRemote)
	}

	shrunk := make([]byte, len(rec.Data)-assocChildSize)
	copy(shrunk, rec.Data[:10+assocChildrenStart+foundAt*assocChildSize])
	copy(shrunk[10+assocChildrenStart+foundAt*assocChildSize:], rec.Data[10+assocChildrenStart+(foundAt+1)*assocChildSize:])
	shrunk[10+assocNumChildren] = byte(numChildren - 1)
	binary.LittleEndian.PutUint16(shrunk[8:10], uint16(len(shrunk)-10))
	rec.Data = shrunk
	return rec.Handle, nil
}

func recordContainsChild(rec *pdr.Record, child Entity) bool {
	body := rec.Data[10:]
	if len(body) < assocChildrenStart {
		return false
	}
	numChildren := int(body[assocNumChildren])
	for i := 0; i < numChildren; i++ {
		off := assocChildrenStart + i*assocChildSize
		if off+assocChildSize > len(body) {
			return false
		}
		if decodeEntity(body[off:]) == child {
			return true
		}
	}
	return false
}

// AssociationPDRCreateNew adds a brand-new, single-child association
// PDR with handle afterHandle+1 (pldm_entity_association_pdr_create_new).
// The record is appended at the end of the repository's insertion
// order; it is not placed directly after the record with handle
// afterHandle.
func AssociationPDRCreateNew(repo *pdr.Repository, afterHandle uint32, parent, child Entity) (uint32, error) {
	data := encodeAssociationPDR(parent, AssocPhysical, []Entity{child})
	handle := afterHandle + 1
	if err := repo.Add(data, false, 0, &handle); err != nil {
		return 0, err
	}
	return handle, nil
}

// PDRExtract decodes an association PDR's container entity followed
// by its children (pldm_entity_association_pdr_extract).
func PDRExtract(data []byte) ([]Entity, error) {
	if len(data) < 10+assocChildrenStart {
		return nil, ErrMalformedRecord
	}
	body := data[10:]
	numChildren := int(body[assocNumChildren])
	need := assocChildrenStart + numChildren*assocChildSize
	if len(body) < need {
		return nil, ErrMalformedRecord
	}

	out := make([]Entity, 0, numChildren+1)
	out = append(out, decodeEntity(body[assocContainerEntity:]))
	for i := 0; i < numChildren; i++ {
		off := assocChildrenStart + i*assocChildSize
		out = append(out, decodeEntity(body[off:]))
	}
	return out, nil
}
