package student

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/aanand-mishra/student-management-api/internal/storage"
	"github.com/aanand-mishra/student-management-api/internal/types"
	"github.com/aanand-mishra/student-management-api/internal/upload"
)

type fakeStore struct {
	mu       sync.Mutex
	students []types.Student
	err      error
}

func (f *fakeStore) CreateStudent(_ context.Context, s types.Student) (types.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return types.Student{}, f.err
	}
	s.ID = storage.NewID()
	f.students = append(f.students, s)
	return s, nil
}

func (f *fakeStore) GetStudents(context.Context) ([]types.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]types.Student{}, f.students...), nil
}

func (f *fakeStore) DeleteStudentByID(_ context.Context, id string) (types.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return types.Student{}, f.err
	}
	if _, err := storage.ParseID(id); err != nil {
		return types.Student{}, err
	}
	for i, s := range f.students {
		if s.ID == id {
			f.students = append(f.students[:i], f.students[i+1:]...)
			return s, nil
		}
	}
	return types.Student{}, storage.ErrNotFound
}

func newUploads(t *testing.T) *upload.Disk {
	t.Helper()
	d, err := upload.New(t.TempDir())
	if err != nil {
		t.Fatalf("upload.New: %v", err)
	}
	return d
}

func validValues() url.Values {
	return url.Values{
		"firstName":   {"Ada"},
		"lastName":    {"Lovelace"},
		"age":         {"12"},
		"class":       {"6B"},
		"yearOfBirth": {"2012"},
	}
}

func multipartRequest(t *testing.T, values url.Values, filename string, content []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, vs := range values {
		for _, v := range vs {
			if err := mw.WriteField(k, v); err != nil {
				t.Fatal(err)
			}
		}
	}
	if filename != "" {
		fw, err := mw.CreateFormFile(ImageField, filename)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write(content); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/students", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, r io.Reader) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(r).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestNew_MultipartWithoutImage(t *testing.T) {
	store := &fakeStore{}
	rr := httptest.NewRecorder()

	New(store, newUploads(t)).ServeHTTP(rr, multipartRequest(t, validValues(), "", nil))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if strings.Contains(rr.Body.String(), `"image"`) {
		t.Errorf("image must be absent, body %s", rr.Body.String())
	}

	got := decode[types.Student](t, rr.Body)
	if got.ID == "" || got.FirstName != "Ada" || got.Age != 12 || got.YearOfBirth != 2012 {
		t.Errorf("unexpected record %+v", got)
	}
	if len(store.students) != 1 {
		t.Errorf("expected 1 stored student, got %d", len(store.students))
	}
}

func TestNew_MultipartWithImage(t *testing.T) {
	store := &fakeStore{}
	uploads := newUploads(t)
	content := []byte("binary image bytes \x00\x01\x02")
	rr := httptest.NewRecorder()

	New(store, uploads).ServeHTTP(rr, multipartRequest(t, validValues(), "me.jpg", content))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	got := decode[types.Student](t, rr.Body)
	if got.Image == nil || !strings.HasPrefix(*got.Image, upload.URLPrefix) {
		t.Fatalf("expected image reference, got %+v", got.Image)
	}

	name := strings.TrimPrefix(*got.Image, upload.URLPrefix)
	stored, err := os.ReadFile(uploads.Dir + "/" + name)
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if !bytes.Equal(stored, content) {
		t.Error("stored file content differs from upload")
	}
}

func TestNew_URLEncodedAndJSON(t *testing.T) {
	t.Run("urlencoded", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/students", strings.NewReader(validValues().Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rr := httptest.NewRecorder()

		New(&fakeStore{}, newUploads(t)).ServeHTTP(rr, req)

		if rr.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
		}
	})

	t.Run("json", func(t *testing.T) {
		body := `{"firstName":"Ada","lastName":"Lovelace","age":12,"class":"6B","yearOfBirth":"2012"}`
		req := httptest.NewRequest(http.MethodPost, "/api/students", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		New(&fakeStore{}, newUploads(t)).ServeHTTP(rr, req)

		if rr.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
		}
		got := decode[types.Student](t, rr.Body)
		if got.Age != 12 || got.YearOfBirth != 2012 {
			t.Errorf("numbers not parsed: %+v", got)
		}
	})

	t.Run("json integral decimals", func(t *testing.T) {
		body := `{"firstName":"Ada","lastName":"Lovelace","age":12.0,"class":"6B","yearOfBirth":2.012e3}`
		req := httptest.NewRequest(http.MethodPost, "/api/students", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		New(&fakeStore{}, newUploads(t)).ServeHTTP(rr, req)

		if rr.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
		}
		got := decode[types.Student](t, rr.Body)
		if got.Age != 12 || got.YearOfBirth != 2012 {
			t.Errorf("numbers not parsed: %+v", got)
		}
	})
}

func TestNew_ValidationFailures(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(url.Values)
		wantError string
	}{
		{"missing first name", func(v url.Values) { v.Del("firstName") }, "field firstName is required"},
		{"non-numeric age", func(v url.Values) { v.Set("age", "twelve") }, "field age must be an integer"},
		{"non-numeric year", func(v url.Values) { v.Set("yearOfBirth", "abc") }, "field yearOfBirth must be an integer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			uploads := newUploads(t)
			values := validValues()
			tt.mutate(values)
			rr := httptest.NewRecorder()

			New(store, uploads).ServeHTTP(rr, multipartRequest(t, values, "me.jpg", []byte("x")))

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rr.Code)
			}
			body := decode[map[string]string](t, rr.Body)
			if body["message"] != msgCreateFailed || body["error"] != tt.wantError {
				t.Errorf("unexpected body %v", body)
			}
			if len(store.students) != 0 {
				t.Error("no record may be stored")
			}
			entries, _ := os.ReadDir(uploads.Dir)
			if len(entries) != 0 {
				t.Errorf("no file may be stored, found %d", len(entries))
			}
		})
	}
}

func TestNew_JSONWrongShape(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/students",
		strings.NewReader(`{"firstName":["Ada"],"lastName":"L","age":1,"class":"c","yearOfBirth":1}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	New(&fakeStore{}, newUploads(t)).ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestNew_UploadFailureAbortsCreate(t *testing.T) {
	store := &fakeStore{}
	uploads := &upload.Disk{Dir: t.TempDir() + "/does-not-exist"}
	rr := httptest.NewRecorder()

	New(store, uploads).ServeHTTP(rr, multipartRequest(t, validValues(), "me.jpg", []byte("x")))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if len(store.students) != 0 {
		t.Error("no record may be stored when the upload fails")
	}
}

func TestNew_StoreFailureRemovesImage(t *testing.T) {
	store := &fakeStore{err: errors.New("db down")}
	uploads := newUploads(t)
	rr := httptest.NewRecorder()

	New(store, uploads).ServeHTTP(rr, multipartRequest(t, validValues(), "me.jpg", []byte("x")))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	body := decode[map[string]string](t, rr.Body)
	if body["error"] != "db down" {
		t.Errorf("expected store error detail, got %v", body)
	}
	entries, _ := os.ReadDir(uploads.Dir)
	if len(entries) != 0 {
		t.Errorf("orphaned upload left behind: %d files", len(entries))
	}
}

func TestGetList(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		rr := httptest.NewRecorder()
		GetList(&fakeStore{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/students", nil))

		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		if strings.TrimSpace(rr.Body.String()) != "[]" {
			t.Errorf("expected [], got %s", rr.Body.String())
		}
	})

	t.Run("store failure", func(t *testing.T) {
		rr := httptest.NewRecorder()
		GetList(&fakeStore{err: errors.New("boom")}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/students", nil))

		if rr.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rr.Code)
		}
		body := decode[map[string]string](t, rr.Body)
		if body["message"] != msgFetchFailed || body["error"] != "boom" {
			t.Errorf("unexpected body %v", body)
		}
	})
}

func deleteRequest(id string) *http.Request {
	req := httptest.NewRequest(http.MethodDelete, "/api/students/"+id, nil)
	req.SetPathValue("id", id)
	return req
}

func TestDelete(t *testing.T) {
	store := &fakeStore{}
	created, _ := store.CreateStudent(context.Background(), types.Student{FirstName: "Ada"})

	rr := httptest.NewRecorder()
	Delete(store).ServeHTTP(rr, deleteRequest(created.ID))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := decode[struct {
		Message string        `json:"message"`
		Student types.Student `json:"student"`
	}](t, rr.Body)
	if body.Message != msgDeleted || body.Student.ID != created.ID {
		t.Errorf("unexpected body %+v", body)
	}

	rr = httptest.NewRecorder()
	Delete(store).ServeHTTP(rr, deleteRequest(created.ID))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("second delete: expected 404, got %d", rr.Code)
	}
	if got := strings.TrimSpace(rr.Body.String()); got != `{"message":"Student not found"}` {
		t.Errorf("unexpected body %s", got)
	}
}

func TestDelete_Failures(t *testing.T) {
	tests := []struct {
		name  string
		store *fakeStore
		id    string
	}{
		{"malformed id", &fakeStore{}, "not-an-id"},
		{"store failure", &fakeStore{err: errors.New("boom")}, storage.NewID()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			Delete(tt.store).ServeHTTP(rr, deleteRequest(tt.id))

			if rr.Code != http.StatusInternalServerError {
				t.Fatalf("expected 500, got %d", rr.Code)
			}
			body := decode[map[string]string](t, rr.Body)
			if body["message"] != msgDeleteFailed || body["error"] == "" {
				t.Errorf("unexpected body %v", body)
			}
		})
	}
}
