package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"report-desk/models"
	"report-desk/storage"
)

const imagePrefix = "articles/"

var allowedImageExtensions = map[string]bool{
	".jpeg": true,
	".png":  true,
	".jpg":  true,
	".gif":  true,
	".webp": true,
}

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// ImageService nimmt Artikelbilder entgegen und liefert sie aus.
type ImageService struct {
	Store    storage.ImageStore
	Logger   *zap.Logger
	MaxBytes int64
	MaxFiles int
	// NewName erzeugt den Dateinamen ohne Endung.
	NewName func() string
}

// NewImageService erstellt einen ImageService mit Größen- und Anzahlgrenzen.
func NewImageService(store storage.ImageStore, logger *zap.Logger, maxKB int64, maxFiles int) *ImageService {
	return &ImageService{
		Store:    store,
		Logger:   logger,
		MaxBytes: maxKB * 1024,
		MaxFiles: maxFiles,
		NewName: func() string {
			return strings.ReplaceAll(uuid.NewString(), "-", "")
		},
	}
}

type pendingImage struct {
	key         string
	data        []byte
	contentType string
}

// Upload prüft alle Dateien und speichert sie erst, wenn jede gültig ist.
// Das Ergebnis sind die Speicherpfade in Upload-Reihenfolge.
func (s *ImageService) Upload(ctx context.Context, user *models.User, files []*multipart.FileHeader) ([]string, error) {
	if !user.HasRole(models.RoleEditor) {
		return nil, ErrUnauthorized
	}

	verr := &ValidationError{}
	switch {
	case len(files) == 0:
		verr.add("images", "The images field is required.")
	case len(files) > s.MaxFiles:
		verr.add("images", fmt.Sprintf("The images field must not have more than %d items.", s.MaxFiles))
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	pending := make([]pendingImage, 0, len(files))
	for i, fh := range files {
		field := fmt.Sprintf("images.%d", i)
		img, msg, err := s.readUpload(fh)
		if err != nil {
			return nil, err
		}
		if msg != "" {
			verr.add(field, fmt.Sprintf("The %s field %s", field, msg))
			continue
		}
		pending = append(pending, img)
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(pending))
	for _, img := range pending {
		if err := s.Store.Put(ctx, img.key, img.data, img.contentType); err != nil {
			return nil, fmt.Errorf("store image: %w", err)
		}
		paths = append(paths, img.key)
	}
	s.Logger.Info("Bilder hochgeladen", zap.Uint("user_id", user.ID), zap.Strings("paths", paths))
	return paths, nil
}

// readUpload liefert entweder ein gültiges Bild oder eine Validierungsmeldung.
func (s *ImageService) readUpload(fh *multipart.FileHeader) (pendingImage, string, error) {
	if fh.Size > s.MaxBytes {
		return pendingImage{}, fmt.Sprintf("must not be greater than %d kilobytes.", s.MaxBytes/1024), nil
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !allowedImageExtensions[ext] {
		return pendingImage{}, "must be a file of type: jpeg, png, jpg, gif, webp.", nil
	}

	f, err := fh.Open()
	if err != nil {
		return pendingImage{}, "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, s.MaxBytes+1))
	if err != nil {
		return pendingImage{}, "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.MaxBytes {
		return pendingImage{}, fmt.Sprintf("must not be greater than %d kilobytes.", s.MaxBytes/1024), nil
	}

	detected := mimetype.Detect(data)
	if !allowedImageTypes[detected.String()] {
		return pendingImage{}, "must be an image.", nil
	}
	return pendingImage{
		key:         imagePrefix + s.NewName() + ext,
		data:        data,
		contentType: detected.String(),
	}, "", nil
}

// Image ist ein ausgeliefertes Bild.
type Image struct {
	Data        []byte
	ContentType string
}

// Fetch lädt ein gespeichertes Bild. Vom Dateinamen zählt nur der Basisname.
func (s *ImageService) Fetch(ctx context.Context, user *models.User, filename string) (*Image, error) {
	if !user.HasRole(models.RoleAdministrator, models.RoleEditor, models.RoleExecutive) {
		return nil, ErrUnauthorized
	}
	base := path.Base(filepath.ToSlash(filename))
	if base == "." || base == "/" || base == ".." || strings.Contains(base, "\\") {
		return nil, ErrNotFound
	}

	data, err := s.Store.Get(ctx, imagePrefix+base)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch image %s: %w", base, err)
	}

	detected := mimetype.Detect(data).String()
	if !allowedImageTypes[detected] {
		s.Logger.Warn("Gespeicherte Datei ist kein erlaubtes Bild", zap.String("file", base), zap.String("mime", detected))
		return nil, ErrInvalidFileType
	}
	return &Image{Data: data, ContentType: detected}, nil
}
