package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/filesmanager/api/internal/models"
	"github.com/google/uuid"
)

func TestFileService_CreateValidation(t *testing.T) {
	env := setupFileEnv(t)
	user := createUser(t, env.db, "alice@x.com", "secret")

	tests := []struct {
		name  string
		input CreateFileInput
		want  string
	}{
		{"missing name", CreateFileInput{Type: "file", Data: encode([]byte("x"))}, "Missing name"},
		{"missing type", CreateFileInput{Name: "a.txt", Data: encode([]byte("x"))}, "Missing type"},
		{"unknown type", CreateFileInput{Name: "a.txt", Type: "video", Data: encode([]byte("x"))}, "Missing type"},
		{"missing data for file", CreateFileInput{Name: "a.txt", Type: "file"}, "Missing data"},
		{"missing data for image", CreateFileInput{Name: "a.png", Type: "image"}, "Missing data"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.service.Create(context.Background(), user.ID, tt.input)
			var fieldErr *FieldError
			if !errors.As(err, &fieldErr) {
				t.Fatalf("expected FieldError, got %v", err)
			}
			if err.Error() != tt.want {
				t.Errorf("expected %q, got %q", tt.want, err.Error())
			}
		})
	}
}

func TestFileService_CreateParentRules(t *testing.T) {
	env := setupFileEnv(t)
	ctx := context.Background()
	alice := createUser(t, env.db, "alice@x.com", "secret")
	bob := createUser(t, env.db, "bob@x.com", "secret")

	folder, err := env.service.Create(ctx, alice.ID, CreateFileInput{Name: "docs", Type: "folder"})
	if err != nil {
		t.Fatalf("creating folder failed: %v", err)
	}
	if folder.LocalPath != nil {
		t.Error("expected folder to have no local path")
	}

	bobsFile, err := env.service.Create(ctx, bob.ID, CreateFileInput{Name: "b.txt", Type: "file", Data: encode([]byte("bob"))})
	if err != nil {
		t.Fatalf("creating file failed: %v", err)
	}

	t.Run("unknown parent", func(t *testing.T) {
		_, err := env.service.Create(ctx, alice.ID, CreateFileInput{Name: "x", Type: "folder", ParentID: uuid.New().String()})
		if !errors.Is(err, ErrParentNotFound) {
			t.Errorf("expected ErrParentNotFound, got %v", err)
		}
	})

	t.Run("malformed parent", func(t *testing.T) {
		_, err := env.service.Create(ctx, alice.ID, CreateFileInput{Name: "x", Type: "folder", ParentID: "abc"})
		if !errors.Is(err, ErrParentNotFound) {
			t.Errorf("expected ErrParentNotFound, got %v", err)
		}
	})

	t.Run("parent is not a folder regardless of owner", func(t *testing.T) {
		_, err := env.service.Create(ctx, alice.ID, CreateFileInput{Name: "x", Type: "folder", ParentID: bobsFile.ID.String()})
		if !errors.Is(err, ErrParentNotFolder) {
			t.Errorf("expected ErrParentNotFolder, got %v", err)
		}
	})

	t.Run("root markers", func(t *testing.T) {
		for _, parent := range []string{"", "0"} {
			entry, err := env.service.Create(ctx, alice.ID, CreateFileInput{Name: "root", Type: "folder", ParentID: parent})
			if err != nil {
				t.Fatalf("Create with parent %q failed: %v", parent, err)
			}
			if entry.ParentID != nil {
				t.Errorf("expected root record for parent %q, got %v", parent, entry.ParentID)
			}
		}
	})

	t.Run("nested file", func(t *testing.T) {
		entry, err := env.service.Create(ctx, alice.ID, CreateFileInput{
			Name:     "notes.txt",
			Type:     "file",
			Data:     encode([]byte("hello")),
			ParentID: folder.ID.String(),
			IsPublic: true,
		})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if entry.ParentID == nil || *entry.ParentID != folder.ID {
			t.Errorf("expected parent %s, got %v", folder.ID, entry.ParentID)
		}
		if !entry.IsPublic {
			t.Error("expected record to be public")
		}
	})
}

func TestFileService_CreateRejectsInvalidBase64(t *testing.T) {
	env := setupFileEnv(t)
	user := createUser(t, env.db, "alice@x.com", "secret")

	_, err := env.service.Create(context.Background(), user.ID, CreateFileInput{Name: "a.txt", Type: "file", Data: "%%%"})
	if !errors.Is(err, ErrInvalidData) {
		t.Errorf("expected ErrInvalidData, got %v", err)
	}

	var count int64
	env.db.Model(&models.File{}).Count(&count)
	if count != 0 {
		t.Errorf("expected no record to be persisted, got %d", count)
	}
}

func TestFileService_UploadDownloadRoundTrip(t *testing.T) {
	env := setupFileEnv(t)
	ctx := context.Background()
	user := createUser(t, env.db, "alice@x.com", "secret")
	payload := []byte("Hello Webstack!\n")

	entry, err := env.service.Create(ctx, user.ID, CreateFileInput{Name: "hello.txt", Type: "file", Data: encode(payload)})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if entry.LocalPath == nil || !strings.HasPrefix(*entry.LocalPath, env.store.Root()) {
		t.Fatalf("expected local path under storage root, got %v", entry.LocalPath)
	}

	content, err := env.service.Read(ctx, entry.ID.String(), "", user.ID)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	defer content.Reader.Close()

	got, _ := io.ReadAll(content.Reader)
	if string(got) != string(payload) {
		t.Errorf("expected %q, got %q", payload, got)
	}
	if content.Size != int64(len(payload)) {
		t.Errorf("expected size %d, got %d", len(payload), content.Size)
	}
	if !strings.HasPrefix(content.ContentType, "text/plain") {
		t.Errorf("expected text/plain content type, got %s", content.ContentType)
	}

	depth, _ := env.queue.Depth(ctx)
	if depth.Pending != 0 {
		t.Errorf("expected no thumbnail job for a plain file, got %+v", depth)
	}
}

func TestFileService_ImageUploadEnqueuesThumbnailJob(t *testing.T) {
	env := setupFileEnv(t)
	ctx := context.Background()
	user := createUser(t, env.db, "alice@x.com", "secret")

	entry, err := env.service.Create(ctx, user.ID, CreateFileInput{Name: "a.png", Type: "image", Data: encode(pngBytes(t, 10, 10))})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	state, err := env.queue.StatusByFile(ctx, entry.ID.String())
	if err != nil {
		t.Fatalf("StatusByFile failed: %v", err)
	}
	if state == nil || state.Status != models.ThumbnailJobStatusEnqueued {
		t.Fatalf("expected an enqueued job, got %+v", state)
	}
	if state.UserID != user.ID.String() {
		t.Errorf("expected job for user %s, got %s", user.ID, state.UserID)
	}

	status, err := env.service.ThumbnailStatus(ctx, user.ID, entry.ID.String())
	if err != nil {
		t.Fatalf("ThumbnailStatus failed: %v", err)
	}
	if status.JobID != state.JobID {
		t.Errorf("expected job %s, got %s", state.JobID, status.JobID)
	}
}

func TestFileService_EnqueueFailureKeepsUpload(t *testing.T) {
	env := setupFileEnv(t)
	env.service.Queue = failingQueue{}
	user := createUser(t, env.db, "alice@x.com", "secret")

	entry, err := env.service.Create(context.Background(), user.ID, CreateFileInput{Name: "a.png", Type: "image", Data: encode(pngBytes(t, 4, 4))})
	if err != nil {
		t.Fatalf("expected upload to succeed despite queue failure, got %v", err)
	}

	var stored models.File
	if err := env.db.First(&stored, "id = ?", entry.ID).Error; err != nil {
		t.Errorf("expected record to be persisted, got %v", err)
	}
}

func TestFileService_GetHidesForeignRecords(t *testing.T) {
	env := setupFileEnv(t)
	ctx := context.Background()
	alice := createUser(t, env.db, "alice@x.com", "secret")
	bob := createUser(t, env.db, "bob@x.com", "secret")

	entry, _ := env.service.Create(ctx, alice.ID, CreateFileInput{Name: "docs", Type: "folder"})

	if got, err := env.service.Get(ctx, alice.ID, entry.ID.String()); err != nil || got.ID != entry.ID {
		t.Fatalf("expected owner to get record, got %v, %v", got, err)
	}

	for _, id := range []string{entry.ID.String(), uuid.New().String(), "not-a-uuid"} {
		if _, err := env.service.Get(ctx, bob.ID, id); !errors.Is(err, ErrNotFound) {
			t.Errorf("Get(%q) by non-owner: expected ErrNotFound, got %v", id, err)
		}
	}
}

func TestFileService_ListPagination(t *testing.T) {
	env := setupFileEnv(t)
	ctx := context.Background()
	alice := createUser(t, env.db, "alice@x.com", "secret")
	bob := createUser(t, env.db, "bob@x.com", "secret")

	base := time.Now().UTC().Add(-time.Hour)
	var root []models.File
	for i := 0; i < 45; i++ {
		f := models.File{
			BaseModel: models.BaseModel{CreatedAt: base.Add(time.Duration(i) * time.Second)},
			UserID:    alice.ID,
			Name:      "folder",
			Type:      models.FileTypeFolder,
		}
		if err := env.db.Create(&f).Error; err != nil {
			t.Fatalf("failed creating record: %v", err)
		}
		root = append(root, f)
	}

	env.db.Create(&models.File{UserID: bob.ID, Name: "bob", Type: models.FileTypeFolder})
	env.db.Create(&models.File{UserID: alice.ID, Name: "nested", Type: models.FileTypeFolder, ParentID: &root[0].ID})

	page1, err := env.service.List(ctx, alice.ID, "0", 1)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(page1) != 20 {
		t.Fatalf("expected 20 records on page 1, got %d", len(page1))
	}
	for i, f := range page1 {
		if f.ID != root[20+i].ID {
			t.Fatalf("page 1 position %d: expected record %d, got another", i, 21+i)
		}
	}

	page2, _ := env.service.List(ctx, alice.ID, "", 2)
	if len(page2) != 5 {
		t.Errorf("expected 5 records on page 2, got %d", len(page2))
	}

	nested, _ := env.service.List(ctx, alice.ID, root[0].ID.String(), 0)
	if len(nested) != 1 || nested[0].Name != "nested" {
		t.Errorf("expected the nested record, got %+v", nested)
	}

	bobs, _ := env.service.List(ctx, bob.ID, "0", 0)
	if len(bobs) != 1 {
		t.Errorf("expected bob to see only his record, got %d", len(bobs))
	}

	invalid, err := env.service.List(ctx, alice.ID, "abc", 0)
	if err != nil || len(invalid) != 0 {
		t.Errorf("expected empty list for malformed parent, got %d records, %v", len(invalid), err)
	}
}

func TestFileService_SetVisibility(t *testing.T) {
	env := setupFileEnv(t)
	ctx := context.Background()
	alice := createUser(t, env.db, "alice@x.com", "secret")
	bob := createUser(t, env.db, "bob@x.com", "secret")

	entry, _ := env.service.Create(ctx, alice.ID, CreateFileInput{Name: "a.txt", Type: "file", Data: encode([]byte("a"))})

	published, err := env.service.SetVisibility(ctx, alice.ID, entry.ID.String(), true)
	if err != nil || !published.IsPublic {
		t.Fatalf("expected record to be published, got %v, %v", published, err)
	}

	for i := 0; i < 2; i++ {
		unpublished, err := env.service.SetVisibility(ctx, alice.ID, entry.ID.String(), false)
		if err != nil {
			t.Fatalf("unpublish #%d failed: %v", i+1, err)
		}
		if unpublished.IsPublic {
			t.Errorf("unpublish #%d: expected isPublic=false", i+1)
		}
	}

	var stored models.File
	env.db.First(&stored, "id = ?", entry.ID)
	if stored.IsPublic {
		t.Error("expected visibility to be persisted")
	}

	if _, err := env.service.SetVisibility(ctx, bob.ID, entry.ID.String(), true); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for non-owner, got %v", err)
	}
}

func TestFileService_ReadRules(t *testing.T) {
	env := setupFileEnv(t)
	ctx := context.Background()
	alice := createUser(t, env.db, "alice@x.com", "secret")
	bob := createUser(t, env.db, "bob@x.com", "secret")

	folder, _ := env.service.Create(ctx, alice.ID, CreateFileInput{Name: "docs", Type: "folder", IsPublic: true})
	private, _ := env.service.Create(ctx, alice.ID, CreateFileInput{Name: "a.txt", Type: "file", Data: encode([]byte("private"))})
	public, _ := env.service.Create(ctx, alice.ID, CreateFileInput{Name: "b.txt", Type: "file", Data: encode([]byte("public")), IsPublic: true})

	tests := []struct {
		name      string
		fileID    string
		size      string
		requester uuid.UUID
		wantErr   error
		wantMsg   string
	}{
		{"unknown record", uuid.New().String(), "", alice.ID, ErrNotFound, ""},
		{"malformed id", "abc", "", alice.ID, ErrNotFound, ""},
		{"folder", folder.ID.String(), "", alice.ID, ErrBadRequest, "A folder doesn't have content"},
		{"private anonymous", private.ID.String(), "", uuid.Nil, ErrNotFound, ""},
		{"private non-owner", private.ID.String(), "", bob.ID, ErrNotFound, ""},
		{"unknown size", public.ID.String(), "42", uuid.Nil, ErrNotFound, ""},
		{"path traversal size", public.ID.String(), "../x", uuid.Nil, ErrNotFound, ""},
		{"missing thumbnail", public.ID.String(), "500", uuid.Nil, ErrNotFound, ""},
		{"private owner", private.ID.String(), "", alice.ID, nil, ""},
		{"public anonymous", public.ID.String(), "", uuid.Nil, nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, err := env.service.Read(ctx, tt.fileID, tt.size, tt.requester)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected success, got %v", err)
				}
				content.Reader.Close()
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if tt.wantMsg != "" && err.Error() != tt.wantMsg {
				t.Errorf("expected message %q, got %q", tt.wantMsg, err.Error())
			}
		})
	}

	t.Run("blob removed from disk", func(t *testing.T) {
		_ = env.store.Delete(ctx, *public.LocalPath)
		if _, err := env.service.Read(ctx, public.ID.String(), "", uuid.Nil); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestFileService_ThumbnailStatusRequiresImage(t *testing.T) {
	env := setupFileEnv(t)
	ctx := context.Background()
	user := createUser(t, env.db, "alice@x.com", "secret")

	entry, _ := env.service.Create(ctx, user.ID, CreateFileInput{Name: "a.txt", Type: "file", Data: encode([]byte("a"))})

	if _, err := env.service.ThumbnailStatus(ctx, user.ID, entry.ID.String()); !errors.Is(err, ErrNotImage) {
		t.Errorf("expected ErrNotImage, got %v", err)
	}
}
