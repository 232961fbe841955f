package storage

import (
	"context"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/mutchinick/ai-workflow-architect-sub001/domain"
)

type snapshotEntity struct {
	PartitionKey string `json:"PartitionKey"`
	RowKey       string `json:"RowKey"`
	Data         string `json:"Data"`
}

// splitObjectKey separates "<workflowId>/<progress>" into table keys.
func splitObjectKey(objectKey string) (pk, rk string, err error) {
	pk, rk, ok := strings.Cut(objectKey, "/")
	if !ok || pk == "" || rk == "" {
		return "", "", domain.NewFailure(domain.ErrInvalidArguments, false, "malformed object key "+objectKey)
	}
	return pk, sanitizeTableKey(rk), nil
}

// ReadSnapshot loads the workflow snapshot stored under objectKey. A
// missing snapshot and an unparsable snapshot are both non-transient: a
// retry cannot make them readable.
func (s *Storage) ReadSnapshot(ctx context.Context, objectKey string) (*domain.Workflow, error) {
	pk, rk, err := splitObjectKey(objectKey)
	if err != nil {
		return nil, err
	}
	resp, err := s.snapshotsTable.GetEntity(ctx, pk, rk, nil)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.WrapFailure(domain.ErrSnapshotNotFound, false, err, "snapshot "+objectKey+" not found")
		}
		return nil, domain.WrapFailure(domain.ErrUnrecognized, true, err, "read snapshot "+objectKey)
	}
	var ent snapshotEntity
	if err := sonic.Unmarshal(resp.Value, &ent); err != nil {
		return nil, domain.WrapFailure(domain.ErrSnapshotCorrupted, false, err, "decode snapshot entity "+objectKey)
	}
	wf, err := decodeSnapshot([]byte(ent.Data))
	if err != nil {
		return nil, domain.WrapFailure(domain.ErrSnapshotCorrupted, false, err, "decode snapshot "+objectKey)
	}
	return wf, nil
}

// SaveSnapshot persists the workflow under its progress-derived key with an
// insert-only write: create, never overwrite. A key that already exists
// means another worker advanced the workflow to this progress state first.
func (s *Storage) SaveSnapshot(ctx context.Context, wf *domain.Workflow) error {
	if wf == nil {
		return domain.NewFailure(domain.ErrInvalidArguments, false, "workflow is required")
	}
	objectKey := wf.ObjectKey()
	pk, rk, err := splitObjectKey(objectKey)
	if err != nil {
		return err
	}
	data, err := sonic.Marshal(wf)
	if err != nil {
		return domain.WrapFailure(domain.ErrInvalidArguments, false, err, "encode snapshot")
	}
	payload, err := sonic.Marshal(snapshotEntity{PartitionKey: pk, RowKey: rk, Data: string(data)})
	if err != nil {
		return domain.WrapFailure(domain.ErrInvalidArguments, false, err, "encode snapshot entity")
	}
	if _, err := s.snapshotsTable.AddEntity(ctx, payload, nil); err != nil {
		if isConflict(err) {
			return domain.WrapFailure(domain.ErrSnapshotCollision, false, err, "snapshot "+objectKey+" already persisted")
		}
		return domain.WrapFailure(domain.ErrUnrecognized, true, err, "save snapshot "+objectKey)
	}
	return nil
}

func decodeSnapshot(data []byte) (*domain.Workflow, error) {
	var wf domain.Workflow
	if err := sonic.Unmarshal(data, &wf); err != nil {
		return nil, err
	}
	if wf.ID == "" {
		return nil, domain.NewFailure(domain.ErrSnapshotCorrupted, false, "snapshot has no workflow id")
	}
	return &wf, nil
}
