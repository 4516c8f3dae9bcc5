package rilis

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/afero"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	maxImageWidth = 1200
	jpegQuality   = 80
	maxUploadSize = 10 << 20 // 10MB
	uploadsURL    = "/uploads"
)

var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".gif": true,
}

// ErrInvalidImage is returned when an upload cannot be decoded as an image.
var ErrInvalidImage = errors.New("invalid image")

// Image is an uploaded file as listed to the operator.
type Image struct {
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// ImageStore keeps uploaded images as files in one directory.
type ImageStore struct {
	fs  afero.Fs
	dir string
	now func() time.Time
}

// NewImageStore creates an ImageStore rooted at dir on fs.
func NewImageStore(fs afero.Fs, dir string, now func() time.Time) *ImageStore {
	if now == nil {
		now = time.Now
	}
	return &ImageStore{fs: fs, dir: dir, now: now}
}

// processImage decodes an image from src, shrinks it to maxImageWidth when
// wider, and encodes it as JPEG.
func processImage(src io.Reader) ([]byte, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalidImage, err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > maxImageWidth {
		newH := h * maxImageWidth / w
		dst := image.NewRGBA(image.Rect(0, 0, maxImageWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// uniqueName returns img_<unix-millis>.jpg, appending a counter if a file
// with that name already exists.
func (s *ImageStore) uniqueName() (string, error) {
	base := "img_" + strconv.FormatInt(s.now().UnixMilli(), 10)
	candidate := base + ".jpg"
	for counter := 2; ; counter++ {
		exists, err := afero.Exists(s.fs, filepath.Join(s.dir, candidate))
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d.jpg", base, counter)
	}
}

// Save normalises the uploaded image and stores it under a timestamped name.
func (s *ImageStore) Save(src io.Reader) (Image, error) {
	data, err := processImage(io.LimitReader(src, maxUploadSize+1))
	if err != nil {
		return Image{}, err
	}
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return Image{}, fmt.Errorf("create uploads dir: %w", err)
	}
	name, err := s.uniqueName()
	if err != nil {
		return Image{}, err
	}
	if err := afero.WriteFile(s.fs, filepath.Join(s.dir, name), data, 0o644); err != nil {
		return Image{}, fmt.Errorf("write image: %w", err)
	}
	return Image{
		Name:       name,
		URL:        path.Join(uploadsURL, name),
		Size:       int64(len(data)),
		UploadedAt: s.now(),
	}, nil
}

// List returns the stored images, newest first. A missing directory is an
// empty list.
func (s *ImageStore) List() ([]Image, error) {
	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var images []Image
	for _, fi := range entries {
		if fi.IsDir() || !imageExts[strings.ToLower(filepath.Ext(fi.Name()))] {
			continue
		}
		images = append(images, Image{
			Name:       fi.Name(),
			URL:        path.Join(uploadsURL, fi.Name()),
			Size:       fi.Size(),
			UploadedAt: fi.ModTime(),
		})
	}
	sort.SliceStable(images, func(i, j int) bool {
		return images[i].Name > images[j].Name
	})
	return images, nil
}

// Delete removes an image by file name. Names containing a path are
// rejected; a file that is already gone is not an error.
func (s *ImageStore) Delete(name string) error {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("invalid image name %q", name)
	}
	err := s.fs.Remove(filepath.Join(s.dir, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

type imagesPage struct {
	adminData
	Images []Image
}

func (a *App) handleImageList(c echo.Context) error {
	images, err := a.Images.List()
	if err != nil {
		return err
	}
	return a.render(c, http.StatusOK, "images.html", imagesPage{
		adminData: a.adminData(c),
		Images:    images,
	})
}

// handleImageManager lists uploads as JSON for the editor's image picker.
func (a *App) handleImageManager(c echo.Context) error {
	images, err := a.Images.List()
	if err != nil {
		return err
	}
	if images == nil {
		images = []Image{}
	}
	return c.JSON(http.StatusOK, images)
}

func (a *App) handleImageUpload(c echo.Context) error {
	file, err := c.FormFile("image")
	if err != nil {
		return c.String(http.StatusBadRequest, "No image file provided")
	}
	if file.Size > maxUploadSize {
		return c.String(http.StatusBadRequest, "File too large (max 10MB)")
	}

	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	img, err := a.Images.Save(src)
	if err != nil {
		if errors.Is(err, ErrInvalidImage) {
			a.Log.With(map[string]interface{}{"file": file.Filename}).Warn(err.Error())
			return c.String(http.StatusBadRequest, "Upload failed")
		}
		return err
	}
	a.Log.With(map[string]interface{}{"name": img.Name, "size": img.Size}).Info("image uploaded")
	return c.Redirect(http.StatusSeeOther, "/images")
}

func (a *App) handleImageDelete(c echo.Context) error {
	if err := a.Images.Delete(c.Param("name")); err != nil {
		return c.String(http.StatusBadRequest, "Invalid image name")
	}
	return c.Redirect(http.StatusSeeOther, "/images")
}
