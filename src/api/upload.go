package api

import (
	"errors"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/warp-contracts/marketplace/src/utils/apperr"
	. "github.com/warp-contracts/marketplace/src/utils/logger"
)

const (
	CategoryVideos = "videos"
	CategoryImages = "images"
	CategoryDocs   = "docs"
	CategorySounds = "sounds"
)

// Multipart overhead allowed on top of the file itself
const formOverhead = 1 << 20

var categoryByMime = map[string]string{
	"video": CategoryVideos,
	"image": CategoryImages,
	"audio": CategorySounds,
}

// Used when the MIME type doesn't tell
var categoryByExtension = map[string]string{
	".mp4": CategoryVideos, ".mov": CategoryVideos, ".webm": CategoryVideos, ".avi": CategoryVideos, ".mkv": CategoryVideos,
	".png": CategoryImages, ".jpg": CategoryImages, ".jpeg": CategoryImages, ".gif": CategoryImages, ".webp": CategoryImages, ".svg": CategoryImages,
	".mp3": CategorySounds, ".wav": CategorySounds, ".ogg": CategorySounds, ".m4a": CategorySounds, ".flac": CategorySounds,
	".pdf": CategoryDocs, ".doc": CategoryDocs, ".docx": CategoryDocs, ".xls": CategoryDocs, ".xlsx": CategoryDocs,
	".ppt": CategoryDocs, ".pptx": CategoryDocs, ".txt": CategoryDocs, ".md": CategoryDocs, ".csv": CategoryDocs,
	".rtf": CategoryDocs, ".odt": CategoryDocs, ".ods": CategoryDocs, ".zip": CategoryDocs, ".json": CategoryDocs,
}

type UploadOutput struct {
	Url          string `json:"url"`
	Filename     string `json:"filename"`
	OriginalName string `json:"original_name"`
	Mimetype     string `json:"mimetype"`
	Size         int64  `json:"size"`
	Category     string `json:"category"`
	Cid          string `json:"cid,omitempty"`
	IpfsUrl      string `json:"ipfs_url,omitempty"`
}

// Category and extension of the stored file, empty category for unsupported types
func classify(header *multipart.FileHeader) (category, mimetype, ext string) {
	ext = strings.ToLower(filepath.Ext(header.Filename))

	mimetype = header.Header.Get("Content-Type")
	if mediaType, _, err := mime.ParseMediaType(mimetype); err == nil {
		mimetype = mediaType
	}
	if mimetype == "" || mimetype == "application/octet-stream" {
		if byExt := mime.TypeByExtension(ext); byExt != "" {
			mimetype, _, _ = mime.ParseMediaType(byExt)
		}
	}
	if mimetype == "" {
		mimetype = "application/octet-stream"
	}

	if ext == "" {
		if exts, err := mime.ExtensionsByType(mimetype); err == nil && len(exts) > 0 {
			ext = exts[0]
		}
	}

	major, _, _ := strings.Cut(mimetype, "/")
	if category = categoryByMime[major]; category != "" {
		return
	}
	if category = categoryByExtension[ext]; category != "" {
		return
	}
	if strings.HasPrefix(mimetype, "text/") ||
		(strings.HasPrefix(mimetype, "application/") && mimetype != "application/octet-stream") {
		category = CategoryDocs
	}
	return
}

func (self *Server) onUpload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, self.Config.Upload.MaxFileSize+formOverhead)

	header, err := c.FormFile("file")
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		fail(c, apperr.New(http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "File exceeds the size limit"))
		return
	}
	if err != nil {
		fail(c, apperr.BadRequest("FILE_REQUIRED", "Multipart field \"file\" is required").WithCause(err))
		return
	}

	category, mimetype, ext := classify(header)
	if category == "" {
		fail(c, apperr.BadRequest("UNSUPPORTED_FILE_TYPE", "Unsupported file type "+mimetype))
		return
	}

	limit := self.Config.Upload.MaxFileSize
	if category == CategoryImages && self.Config.Upload.MaxImageSize > 0 {
		limit = self.Config.Upload.MaxImageSize
	}
	if header.Size > limit {
		fail(c, apperr.New(http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "File exceeds the size limit"))
		return
	}

	dir := filepath.Join(self.Config.Upload.Dir, category)
	err = os.MkdirAll(dir, 0o755)
	if err != nil {
		fail(c, apperr.Wrap(err, "UPLOAD_ERROR", LOG(c)))
		return
	}

	name := uuid.NewString() + ext
	err = c.SaveUploadedFile(header, filepath.Join(dir, name))
	if err != nil {
		fail(c, apperr.Wrap(err, "UPLOAD_ERROR", LOG(c)))
		return
	}

	out := &UploadOutput{
		Url:          strings.TrimRight(self.Config.API.PublicUrl, "/") + path.Join("/uploads", category, name),
		Filename:     name,
		OriginalName: header.Filename,
		Mimetype:     mimetype,
		Size:         header.Size,
		Category:     category,
	}

	if c.PostForm("pin") == "true" && self.ipfs != nil && self.ipfs.IsEnabled() {
		err = self.pin(c, header, out)
		if err != nil {
			fail(c, err)
			return
		}
	}

	if self.monitor != nil {
		self.monitor.GetReport().Api.State.Uploads.Inc()
	}
	LOG(c).WithField("file", out.Filename).WithField("size", out.Size).Debug("File uploaded")
	replyCreated(c, out)
}

func (self *Server) pin(c *gin.Context, header *multipart.FileHeader, out *UploadOutput) (err error) {
	file, err := header.Open()
	if err != nil {
		return apperr.Wrap(err, "UPLOAD_ERROR", LOG(c))
	}
	defer file.Close()

	pinned, err := self.ipfs.PinFile(c.Request.Context(), out.Filename, file)
	if err != nil {
		return apperr.Unavailable("IPFS_PIN_FAILED", "Failed to pin file to IPFS").WithCause(err)
	}
	if self.monitor != nil {
		self.monitor.GetReport().Chain.State.PinnedFiles.Inc()
	}

	out.Cid = pinned.Cid
	out.IpfsUrl = pinned.Url
	return
}
