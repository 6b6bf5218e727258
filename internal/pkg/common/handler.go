package common

import (
	"mime/multipart"
	"net/http"
	"sync"
	"sync/atomic"

	"campusfind/internal/pkg/uploader"
	"campusfind/pkg/response"

	"github.com/gin-gonic/gin"
)

// 允许的上传目录
var folders = map[string]bool{"id-cards": true, "items": true}

// maxConcurrentUploads 单次请求内并发上传数
const maxConcurrentUploads = 5

// UploadHandler 图片上传
type UploadHandler struct {
	uploader uploader.Uploader // 未配置 OSS 时为 nil
}

func NewUploadHandler(u uploader.Uploader) *UploadHandler {
	return &UploadHandler{uploader: u}
}

// UploadFile 上传文件 (支持批量)
// @Summary 上传 ID 卡或物品图片到 OSS (支持批量)
// @Tags Common
// @Accept multipart/form-data
// @Produce json
// @Param files formData file true "Files"
// @Param folder formData string false "id-cards | items"
// @Success 200 {object} response.Response{data=[]string} "URLs"
// @Router /upload [post]
func (h *UploadHandler) UploadFile(c *gin.Context) {
	if h.uploader == nil {
		response.Error(c, http.StatusServiceUnavailable, response.ErrExternalService, "Uploader not configured")
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "Invalid form data")
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "No files uploaded")
		return
	}

	folder := c.DefaultPostForm("folder", "items")
	if !folders[folder] {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "folder must be id-cards or items")
		return
	}

	urls, err := h.uploadAll(folder, files)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "Upload failed: "+err.Error())
		return
	}
	response.Success(c, urls)
}

// uploadAll 并发上传，结果顺序与输入一致；任一失败即返回第一个错误
func (h *UploadHandler) uploadAll(folder string, files []*multipart.FileHeader) ([]string, error) {
	urls := make([]string, len(files))

	var (
		wg        sync.WaitGroup
		errOnce   sync.Once
		uploadErr error
		failed    atomic.Bool
	)
	sem := make(chan struct{}, maxConcurrentUploads)

	for i, file := range files {
		wg.Add(1)
		go func(index int, f *multipart.FileHeader) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			if failed.Load() {
				return
			}

			url, err := h.uploader.UploadFile(folder, f)
			if err != nil {
				errOnce.Do(func() {
					uploadErr = err
					failed.Store(true)
				})
				return
			}
			urls[index] = url
		}(i, file)
	}
	wg.Wait()

	if uploadErr != nil {
		return nil, uploadErr
	}
	return urls, nil
}
