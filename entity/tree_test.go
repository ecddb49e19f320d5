package entity

import (
	"testing"

	"github.com/openbmc/go-pldm/pdr"
)

// buildSampleTree constructs a small, self-consistent tree honoring
// §3.5's rules (container IDs assigned per parent, instance numbers
// per (parent, type)): a root with two logical type-3 children and
// three physical children of types {2, 2, 3} with instance numbers
// {1, 2, 1}. This is not a byte-exact reproduction of an un-retrieved
// reference fixture; it is built to satisfy the same structural
// description the scenario gives.
func buildSampleTree(t *testing.T) (*Tree, int) {
	t.Helper()
	tr := New()

	root, err := tr.Add(1, 1, NoParent, AssocPhysical)
	if err != nil {
		t.Fatalf("Add(root): %v", err)
	}

	if _, err := tr.Add(3, Wildcard, root, AssocLogical); err != nil {
		t.Fatalf("Add(logical child 1): %v", err)
	}
	if _, err := tr.Add(3, Wildcard, root, AssocLogical); err != nil {
		t.Fatalf("Add(logical child 2): %v", err)
	}

	if _, err := tr.Add(2, Wildcard, root, AssocPhysical); err != nil {
		t.Fatalf("Add(physical child 1): %v", err)
	}
	if _, err := tr.Add(2, Wildcard, root, AssocPhysical); err != nil {
		t.Fatalf("Add(physical child 2): %v", err)
	}
	if _, err := tr.Add(3, Wildcard, root, AssocPhysical); err != nil {
		t.Fatalf("Add(physical child 3): %v", err)
	}

	return tr, root
}

func TestTreeAddAssignsContainerIDsAndInstances(t *testing.T) {
	tr, root := buildSampleTree(t)

	var sawInstances []uint16
	for _, idx := range tr.nodes[root].physical {
		sawInstances = append(sawInstances, tr.nodes[idx].entity.InstanceNum)
	}
	if len(sawInstances) != 3 {
		t.Fatalf("physical children = %d, want 3", len(sawInstances))
	}

	// all physical siblings of root share one container id
	cid := tr.nodes[tr.nodes[root].physical[0]].entity.ContainerID
	for _, idx := range tr.nodes[root].physical {
		if tr.nodes[idx].entity.ContainerID != cid {
			t.Errorf("sibling container id mismatch: got %d, want %d", tr.nodes[idx].entity.ContainerID, cid)
		}
	}
}

func TestTreeAddRejectsInstanceCollision(t *testing.T) {
	tr := New()
	root, err := tr.Add(1, 1, NoParent, AssocPhysical)
	if err != nil {
		t.Fatalf("Add(root): %v", err)
	}
	if _, err := tr.Add(2, 5, root, AssocPhysical); err != nil {
		t.Fatalf("Add(explicit instance): %v", err)
	}
	if _, err := tr.Add(2, 5, root, AssocPhysical); err != ErrInstanceInUse {
		t.Fatalf("Add(duplicate instance) = %v, want ErrInstanceInUse", err)
	}
}

func TestTreeFindAndFindWithLocality(t *testing.T) {
	tr := New()
	root, _ := tr.Add(1, 1, NoParent, AssocPhysical)
	if _, err := tr.AddEntity(2, 7, root, AssocPhysical, true, false, 0); err != nil {
		t.Fatalf("AddEntity: %v", err)
	}

	got, ok := tr.Find(2, 7)
	if !ok || got.Type != 2 {
		t.Fatalf("Find = (%v, %v), want a type-2 entity", got, ok)
	}

	if _, ok := tr.FindWithLocality(2, 7, false); ok {
		t.Fatalf("FindWithLocality(local) found a remote node")
	}
	if _, ok := tr.FindWithLocality(2, 7, true); !ok {
		t.Fatalf("FindWithLocality(remote) missed the remote node")
	}
}

func TestTreeVisitOrdersPhysicalBeforeLogical(t *testing.T) {
	tr := New()
	root, _ := tr.Add(1, 1, NoParent, AssocPhysical)
	logicalChild, _ := tr.Add(3, Wildcard, root, AssocLogical)
	physicalChild, _ := tr.Add(2, Wildcard, root, AssocPhysical)

	visited := tr.Visit()
	if len(visited) != 3 {
		t.Fatalf("Visit returned %d entities, want 3", len(visited))
	}
	if visited[0] != tr.nodes[root].entity {
		t.Fatalf("Visit[0] = %v, want root", visited[0])
	}
	if visited[1] != tr.nodes[physicalChild].entity {
		t.Fatalf("Visit[1] = %v, want physical child", visited[1])
	}
	if visited[2] != tr.nodes[logicalChild].entity {
		t.Fatalf("Visit[2] = %v, want logical child", visited[2])
	}
}

func TestTreeCopyRootIsIndependent(t *testing.T) {
	src, root := buildSampleTree(t)
	dst := New()
	CopyRoot(src, dst)

	if len(dst.nodes) != len(src.nodes) {
		t.Fatalf("CopyRoot node count = %d, want %d", len(dst.nodes), len(src.nodes))
	}

	if _, err := src.Add(9, Wildcard, root, AssocPhysical); err != nil {
		t.Fatalf("Add on src: %v", err)
	}
	if len(dst.nodes) == len(src.nodes) {
		t.Fatalf("mutating src affected dst's node count")
	}
}

func TestTreeDeleteNodeRemovesSubtree(t *testing.T) {
	tr := New()
	root, _ := tr.Add(1, 1, NoParent, AssocPhysical)
	parent, _ := tr.Add(2, 1, root, AssocPhysical)
	if _, err := tr.Add(3, 1, parent, AssocPhysical); err != nil {
		t.Fatalf("Add(grandchild): %v", err)
	}

	if err := tr.DeleteNode(2, 1); err != nil {
		t.Fatalf("DeleteNode: %v", err)
	}
	if _, ok := tr.Find(2, 1); ok {
		t.Fatalf("Find still sees deleted node")
	}
	if _, ok := tr.Find(3, 1); ok {
		t.Fatalf("Find still sees deleted node's child")
	}
	if _, ok := tr.Find(1, 1); !ok {
		t.Fatalf("root was removed along with the deleted subtree")
	}

	if err := tr.DeleteNode(2, 1); err != ErrNodeNotFound {
		t.Fatalf("DeleteNode again = %v, want ErrNodeNotFound", err)
	}
}

func TestAssociationPDRAddEmitsLogicalBeforePhysical(t *testing.T) {
	tr, root := buildSampleTree(t)
	repo := pdr.New()

	if err := tr.AssociationPDRAdd(repo, false, 1); err != nil {
		t.Fatalf("AssociationPDRAdd: %v", err)
	}

	if got := repo.RecordCount(); got != 2 {
		t.Fatalf("RecordCount = %d, want 2", got)
	}

	first, _ := repo.FindRecord(0)
	if first.Handle != 1 {
		t.Fatalf("first record handle = %d, want 1", first.Handle)
	}
	logicalEntities, err := PDRExtract(first.Data)
	if err != nil {
		t.Fatalf("PDRExtract(logical): %v", err)
	}
	if len(logicalEntities) != 3 { // container + 2 logical children
		t.Fatalf("logical record has %d entities, want 3", len(logicalEntities))
	}
	if logicalEntities[0] != tr.nodes[root].entity {
		t.Fatalf("logical record container = %v, want root", logicalEntities[0])
	}

	second := repo.GetNextRecord(first)
	if second == nil {
		t.Fatalf("expected a second record")
	}
	physicalEntities, err := PDRExtract(second.Data)
	if err != nil {
		t.Fatalf("PDRExtract(physical): %v", err)
	}
	if len(physicalEntities) != 4 { // container + 3 physical children
		t.Fatalf("physical record has %d entities, want 4", len(physicalEntities))
	}
}

func TestAssociationPDRAddContainedEntityAndRemove(t *testing.T) {
	tr := New()
	root, _ := tr.Add(1, 1, NoParent, AssocPhysical)
	if _, err := tr.Add(2, 1, root, AssocPhysical); err != nil {
		t.Fatalf("Add: %v", err)
	}

	repo := pdr.New()
	if err := tr.AssociationPDRAdd(repo, false, 1); err != nil {
		t.Fatalf("AssociationPDRAdd: %v", err)
	}

	rec, _ := repo.FindRecord(0)
	before, err := PDRExtract(rec.Data)
	if err != nil {
		t.Fatalf("PDRExtract: %v", err)
	}
	containerID := before[0].ContainerID

	newChild := Entity{Type: 2, InstanceNum: 2, ContainerID: containerID}
	if err := AssociationPDRAddContainedEntityToRemotePDR(repo, newChild, rec.Handle); err != nil {
		t.Fatalf("AssociationPDRAddContainedEntityToRemotePDR: %v", err)
	}

	grown, _ := repo.FindRecord(rec.Handle)
	entities, err := PDRExtract(grown.Data)
	if err != nil {
		t.Fatalf("PDRExtract(grown): %v", err)
	}
	if len(entities) != 3 { // container + original child + new child
		t.Fatalf("len(entities) = %d, want 3", len(entities))
	}

	handle, err := AssociationPDRRemoveContainedEntity(repo, newChild, false, rec.Handle)
	if err != nil {
		t.Fatalf("AssociationPDRRemoveContainedEntity: %v", err)
	}
	if handle != rec.Handle {
		t.Fatalf("returned handle = %d, want %d", handle, rec.Handle)
	}

	shrunk, _ := repo.FindRecord(rec.Handle)
	entities, err = PDRExtract(shrunk.Data)
	if err != nil {
		t.Fatalf("PDRExtract(shrunk): %v", err)
	}
	if len(entities) != 2 {
		t.Fatalf("len(entities) after removal = %d, want 2", len(entities))
	}

	// removing the last remaining child deletes the PDR entirely.
	originalChild := entities[1]
	if _, err := AssociationPDRRemoveContainedEntity(repo, originalChild, false, rec.Handle); err != nil {
		t.Fatalf("AssociationPDRRemoveContainedEntity(last child): %v", err)
	}
	if got, _ := repo.FindRecord(rec.Handle); got != nil {
		t.Fatalf("record survived removal of its last child")
	}
}

func TestAssociationPDRCreateNewAndExtract(t *testing.T) {
	repo := pdr.New()
	parent := Entity{Type: 1, InstanceNum: 1, ContainerID: 1}
	child := Entity{Type: 2, InstanceNum: 1, ContainerID: 1}

	handle, err := AssociationPDRCreateNew(repo, 10, parent, child)
	if err != nil {
		t.Fatalf("AssociationPDRCreateNew: %v", err)
	}
	if handle != 11 {
		t.Fatalf("handle = %d, want 11", handle)
	}

	rec, _ := repo.FindRecord(handle)
	entities, err := PDRExtract(rec.Data)
	if err != nil {
		t.Fatalf("PDRExtract: %v", err)
	}
	if len(entities) != 2 || entities[0] != parent || entities[1] != child {
		t.Fatalf("entities = %v, want [%v %v]", entities, parent, child)
	}
}

func TestPDRExtractRejectsMalformedRecord(t *testing.T) {
	if _, err := PDRExtract([]byte{1, 2, 3}); err != ErrMalformedRecord {
		t.Fatalf("PDRExtract(short) = %v, want ErrMalformedRecord", err)
	}
}
