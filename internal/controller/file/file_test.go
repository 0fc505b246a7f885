package file

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"InternHub-backend/internal/auth"
	"InternHub-backend/internal/controller"
	"InternHub-backend/internal/database"
	"InternHub-backend/internal/middleware"
	"InternHub-backend/internal/model"
	"InternHub-backend/internal/storage"
	"InternHub-backend/internal/storage/mocks"
	"InternHub-backend/internal/testutil"
)

var testDB *database.DBinstanceStruct

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	teardown, db, err := database.GetTestDB()
	if err != nil {
		log.Printf("could not start test database: %v", err)
		os.Exit(1)
	}
	testDB = db

	code := m.Run()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if teardown != nil {
		_ = teardown(ctx)
	}
	os.Exit(code)
}

func newRouter(store storage.Storage, maxBytes int64) *gin.Engine {
	r := gin.New()
	fc := NewFileController(controller.NewBase(testDB, nil), store, maxBytes)
	api := r.Group("/", middleware.RequireAuth(testDB))
	api.POST("/upload", middleware.SizeLimit(maxBytes), fc.Upload)
	api.GET("/files/:key", fc.GetFile)
	return r
}

func token(t *testing.T, username string) string {
	t.Helper()
	tok, err := auth.GetAccessToken(t, testDB, username, database.TestSeedPassword)
	require.NoError(t, err)
	return tok
}

func download(r *gin.Engine, tok, key string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodGet, "/files/"+key, nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

var pdf = []byte("%PDF-1.4 resume")

func TestUploadToDatabase(t *testing.T) {
	r := newRouter(nil, 1<<20)
	student := token(t, database.TestUserStudent1.Username)

	rec, resp := testutil.MakeMultipartRequest("file", "resume.PDF", pdf, student, r, "/upload")
	require.Equal(t, http.StatusCreated, rec.Code, resp)
	key := resp["key"].(string)
	assert.True(t, strings.HasSuffix(key, ".pdf"))
	assert.Equal(t, "resume.PDF", resp["filename"])
	assert.EqualValues(t, len(pdf), resp["size"])
	assert.Equal(t, "application/pdf", resp["content_type"])

	var stored model.File
	require.NoError(t, testDB.First(&stored, "key = ?", key).Error)
	assert.Equal(t, database.TestUserStudent1.ID, stored.OwnerID)
	assert.Equal(t, pdf, stored.Content)
	assert.Empty(t, stored.StorageObject)

	t.Run("owner downloads", func(t *testing.T) {
		rec := download(r, student, key)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, pdf, rec.Body.Bytes())
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "resume.PDF")
	})

	t.Run("admin downloads", func(t *testing.T) {
		rec := download(r, token(t, database.TestAdminUser.Username), key)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("stranger cannot", func(t *testing.T) {
		rec := download(r, token(t, database.TestUserStudent2.Username), key)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("unknown key", func(t *testing.T) {
		rec := download(r, student, "missing.pdf")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestEmployerReadsAttachedResume(t *testing.T) {
	r := newRouter(nil, 1<<20)
	student, err := database.CreateTestUser(testDB, model.RoleStudent, "")
	require.NoError(t, err)
	tok := token(t, student.Username)

	rec, resp := testutil.MakeMultipartRequest("file", "cv.pdf", pdf, tok, r, "/upload")
	require.Equal(t, http.StatusCreated, rec.Code, resp)
	key := resp["key"].(string)

	employer := token(t, database.TestUserCompany1.Username)
	assert.Equal(t, http.StatusForbidden, download(r, employer, key).Code)

	app := model.NewApplication(database.TestJobActive.ID, student.ID, "", &key, time.Now().UTC())
	require.NoError(t, testDB.Create(&app).Error)

	assert.Equal(t, http.StatusOK, download(r, employer, key).Code)
	assert.Equal(t, http.StatusForbidden, download(r, token(t, database.TestUserCompany2.Username), key).Code)
}

func TestUploadRejected(t *testing.T) {
	tok := token(t, database.TestUserStudent1.Username)

	tests := []struct {
		name     string
		field    string
		filename string
		content  []byte
		maxBytes int64
		want     int
	}{
		{"unsupported extension", "file", "notes.docx", []byte("doc"), 1 << 20, http.StatusUnsupportedMediaType},
		{"no extension", "file", "resume", []byte("doc"), 1 << 20, http.StatusUnsupportedMediaType},
		{"too large", "file", "big.pdf", bytes.Repeat([]byte("a"), 64<<10), 1 << 10, http.StatusRequestEntityTooLarge},
		{"wrong field", "resume", "cv.pdf", pdf, 1 << 20, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter(nil, tt.maxBytes)
			rec, _ := testutil.MakeMultipartRequest(tt.field, tt.filename, tt.content, tok, r, "/upload")
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestUploadToObjectStore(t *testing.T) {
	store := &mocks.MockStorage{}
	r := newRouter(store, 1<<20)
	tok := token(t, database.TestUserStudent1.Username)
	png := []byte("\x89PNG logo")

	var object string
	store.On("Put", mock.Anything, mock.MatchedBy(func(name string) bool {
		object = name
		return strings.HasPrefix(name, uploadObjectPrefix+"/"+database.TestUserStudent1.ID.String()+"/")
	}), mock.Anything, int64(len(png)), "image/png").Return(nil).Once()

	rec, resp := testutil.MakeMultipartRequest("file", "logo.png", png, tok, r, "/upload")
	require.Equal(t, http.StatusCreated, rec.Code, resp)
	key := resp["key"].(string)

	var stored model.File
	require.NoError(t, testDB.First(&stored, "key = ?", key).Error)
	assert.Equal(t, object, stored.StorageObject)
	assert.Empty(t, stored.Content)

	store.On("Get", mock.Anything, object).
		Return(io.NopCloser(bytes.NewReader(png)), storage.ObjectInfo{Key: object, Size: int64(len(png))}, nil).Once()

	rec = download(r, tok, key)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, png, rec.Body.Bytes())
	assert.Equal(t, fmt.Sprint(len(png)), rec.Header().Get("Content-Length"))
	store.AssertExpectations(t)
}

func TestUploadStoreFailure(t *testing.T) {
	store := &mocks.MockStorage{}
	store.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("bucket unavailable")).Once()
	r := newRouter(store, 1<<20)

	rec, resp := testutil.MakeMultipartRequest("file", "cv.pdf", pdf, token(t, database.TestUserStudent1.Username), r, "/upload")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, resp["error"], "bucket unavailable")
	store.AssertExpectations(t)
}

func TestWriteFileResponse_RemoteButStorageDisabled(t *testing.T) {
	fc := NewFileController(controller.NewBase(testDB, nil), nil, 0)
	file := &model.File{Key: "x.png", Filename: "x.png", StorageObject: "uploads/u/x.png"}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/files/x.png", nil)

	fc.writeFileResponse(c, file)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Contains(t, w.Body.String(), "Object storage is disabled")
}
