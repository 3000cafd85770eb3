package api

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/listenupapp/plantcare/internal/errors"
	"github.com/listenupapp/plantcare/internal/media/photos"
)

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 12, 12))
	for y := range 12 {
		for x := range 12 {
			img.Set(x, y, color.RGBA{R: 40, G: uint8(100 + x*10), B: uint8(y * 15), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestUpload_StoreServeAndDeleteWithPlant(t *testing.T) {
	env := setupTestServer(t)
	token, user := env.signIn(t)
	data := testPNG(t)

	resp := env.api.Post("/api/v1/upload", bearer(token), map[string]any{
		"filename": "fern.png",
		"data":     data,
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	photo := decode[photos.Photo](t, resp).Data
	assert.True(t, strings.HasPrefix(photo.URL, photos.ServePrefix+"plants/"+user.ID+"/"))
	assert.True(t, strings.HasSuffix(photo.Key, ".png"))
	assert.Equal(t, "image/png", photo.ContentType)
	assert.NotEmpty(t, photo.BlurHash)

	resp = env.api.Get(photo.URL)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "image/png", resp.Header().Get("Content-Type"))
	assert.Equal(t, data, resp.Body.Bytes())

	fern := env.createPlant(t, token, map[string]any{
		"name":          "Fern",
		"photo":         photo.URL,
		"photoBlurHash": photo.BlurHash,
	})
	assert.Equal(t, photo.URL, fern.Photo)

	resp = env.api.Delete("/api/v1/plants/"+fern.ID, bearer(token))
	require.Equal(t, http.StatusNoContent, resp.Code)

	requireError(t, env.api.Get(photo.URL), http.StatusNotFound, domainerrors.CodeNotFound)
}

func TestUpload_ReplacingPhotoDeletesOld(t *testing.T) {
	env := setupTestServer(t)
	token, _ := env.signIn(t)

	resp := env.api.Post("/api/v1/upload", bearer(token), map[string]any{"filename": "a.png", "data": testPNG(t)})
	require.Equal(t, http.StatusCreated, resp.Code)
	old := decode[photos.Photo](t, resp).Data

	fern := env.createPlant(t, token, map[string]any{"name": "Fern", "photo": old.URL})

	resp = env.api.Patch("/api/v1/plants/"+fern.ID, bearer(token), map[string]any{"photo": ""})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	updated := decode[PlantResponse](t, resp).Data
	assert.Empty(t, updated.Photo)
	assert.Empty(t, updated.PhotoBlurHash)

	requireError(t, env.api.Get(old.URL), http.StatusNotFound, domainerrors.CodeNotFound)
}

func TestUpload_Rejects(t *testing.T) {
	env := setupTestServer(t)

	resp := env.api.Post("/api/v1/upload", map[string]any{"filename": "a.png", "data": testPNG(t)})
	requireError(t, resp, http.StatusUnauthorized, domainerrors.CodeUnauthorized)

	token, _ := env.signIn(t)
	resp = env.api.Post("/api/v1/upload", bearer(token), map[string]any{
		"filename": "notes.txt",
		"data":     []byte("just some text"),
	})
	requireError(t, resp, http.StatusBadRequest, domainerrors.CodeValidation)

	resp = env.api.Post("/api/v1/upload", bearer(token), map[string]any{
		"filename": "huge.png",
		"data":     append(testPNG(t), make([]byte, 1<<20)...),
	})
	requireError(t, resp, http.StatusBadRequest, domainerrors.CodeValidation)
}

func TestGetPhoto_Unknown(t *testing.T) {
	env := setupTestServer(t)
	requireError(t, env.api.Get(photos.ServePrefix+"plants/nobody/1.png"), http.StatusNotFound, domainerrors.CodeNotFound)
}

func TestUpload_PhotoOfAnotherUserIsRejected(t *testing.T) {
	env := setupTestServer(t)
	ownerToken, _ := env.signIn(t)

	resp := env.api.Post("/api/v1/upload", bearer(ownerToken), map[string]any{"filename": "a.png", "data": testPNG(t)})
	require.Equal(t, http.StatusCreated, resp.Code)
	photo := decode[photos.Photo](t, resp).Data
	env.createPlant(t, ownerToken, map[string]any{"name": "Fern", "photo": photo.URL})

	otherToken, _ := env.signIn(t)
	resp = env.api.Post("/api/v1/plants", bearer(otherToken), map[string]any{"name": "Decoy", "photo": photo.URL})
	requireError(t, resp, http.StatusBadRequest, domainerrors.CodeValidation)

	cactus := env.createPlant(t, otherToken, map[string]any{"name": "Cactus"})
	resp = env.api.Patch("/api/v1/plants/"+cactus.ID, bearer(otherToken), map[string]any{"photo": photo.URL})
	requireError(t, resp, http.StatusBadRequest, domainerrors.CodeValidation)

	resp = env.api.Delete("/api/v1/plants/"+cactus.ID, bearer(otherToken))
	require.Equal(t, http.StatusNoContent, resp.Code)

	resp = env.api.Get(photo.URL)
	assert.Equal(t, http.StatusOK, resp.Code, "owner's photo is untouched")

	dataURI := "data:image/png;base64,iVBORw0KGgo="
	fern := env.createPlant(t, otherToken, map[string]any{"name": "Inline", "photo": dataURI})
	assert.Equal(t, dataURI, fern.Photo)
}

func TestUpload_SharedPhotoSurvivesDelete(t *testing.T) {
	env := setupTestServer(t)
	token, _ := env.signIn(t)

	resp := env.api.Post("/api/v1/upload", bearer(token), map[string]any{"filename": "a.png", "data": testPNG(t)})
	require.Equal(t, http.StatusCreated, resp.Code)
	photo := decode[photos.Photo](t, resp).Data

	fern := env.createPlant(t, token, map[string]any{"name": "Fern", "photo": photo.URL})
	ivy := env.createPlant(t, token, map[string]any{"name": "Ivy", "photo": photo.URL})

	resp = env.api.Delete("/api/v1/plants/"+fern.ID, bearer(token))
	require.Equal(t, http.StatusNoContent, resp.Code)
	require.Equal(t, http.StatusOK, env.api.Get(photo.URL).Code, "ivy still uses the photo")

	resp = env.api.Delete("/api/v1/plants/"+ivy.ID, bearer(token))
	require.Equal(t, http.StatusNoContent, resp.Code)
	requireError(t, env.api.Get(photo.URL), http.StatusNotFound, domainerrors.CodeNotFound)
}
