package testutil

import (
	"context"

	"github.com/ecosteps/backend/pkg/errorx"
	"github.com/ecosteps/backend/pkg/storage"
)

type MockStorage struct {
	UploadFunc     func(context.Context, *storage.UploadObject) (*storage.UploadResponse, error)
	BulkUploadFunc func(context.Context, []*storage.UploadObject) ([]*storage.UploadResponse, error)
	DeleteFunc     func(context.Context, string) error
	BulkDeleteFunc func(context.Context, []string) error
}

func (m *MockStorage) Upload(
	ctx context.Context, obj *storage.UploadObject,
) (*storage.UploadResponse, error) {
	if m.UploadFunc != nil {
		return m.UploadFunc(ctx, obj)
	}

	return nil, errorx.New(errorx.NotImplemented, "Not implemented")
}

func (m *MockStorage) BulkUpload(
	ctx context.Context, obj []*storage.UploadObject,
) ([]*storage.UploadResponse, error) {
	if m.BulkUploadFunc != nil {
		return m.BulkUploadFunc(ctx, obj)
	}

	return nil, errorx.New(errorx.NotImplemented, "Not implemented")
}

func (m *MockStorage) Delete(ctx context.Context, fileName string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, fileName)
	}

	return nil
}

func (m *MockStorage) BulkDelete(ctx context.Context, fileNames []string) error {
	if m.BulkDeleteFunc != nil {
		return m.BulkDeleteFunc(ctx, fileNames)
	}

	return nil
}
