package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"maintenance-tracker/internal/dto"
	"maintenance-tracker/internal/model"
	"maintenance-tracker/internal/service"
	"maintenance-tracker/pkg/response"
)

// ImportHandler 表格导入模块 HTTP 处理器
type ImportHandler struct {
	importSvc    service.ImportService
	maxFileBytes int64
}

// NewImportHandler 创建 ImportHandler
// maxFileBytes <= 0 时不限制上传文件大小（仍受全局 BodyLimit 约束）
func NewImportHandler(importSvc service.ImportService, maxFileBytes int64) *ImportHandler {
	return &ImportHandler{importSvc: importSvc, maxFileBytes: maxFileBytes}
}

var errUploadTooLarge = errors.New("上传文件过大")

// uploadedFile 上传文件及其原始文件名
type uploadedFile struct {
	multipart.File
	name string
}

// openUpload 读取 multipart 字段 "file"
func (h *ImportHandler) openUpload(c *gin.Context) (*uploadedFile, error) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		return nil, err
	}
	if h.maxFileBytes > 0 && header.Size > h.maxFileBytes {
		file.Close()
		return nil, errUploadTooLarge
	}
	return &uploadedFile{File: file, name: header.Filename}, nil
}

// PreviewImport 解析表格并返回表头、前几行与推荐的列映射
// POST /api/v1/imports/preview（multipart/form-data, field="file"）
func (h *ImportHandler) PreviewImport(c *gin.Context) {
	upload, err := h.openUpload(c)
	if err != nil {
		h.handleUploadError(c, err)
		return
	}
	defer upload.Close()

	resp, err := h.importSvc.Preview(c.Request.Context(), upload)
	if err != nil {
		h.handleImportError(c, err)
		return
	}

	response.OK(c, resp)
}

// CreateImport 按列映射导入表格
// POST /api/v1/imports
//
// multipart/form-data：
//   - file：xlsx 文件
//   - mapping：列映射 JSON
func (h *ImportHandler) CreateImport(c *gin.Context) {
	var mapping model.ColumnMapping
	raw := c.PostForm("mapping")
	if raw == "" {
		response.BadRequest(c, 18002, "缺少列映射")
		return
	}
	if err := json.Unmarshal([]byte(raw), &mapping); err != nil {
		response.BadRequest(c, 10001, "列映射格式无效")
		return
	}

	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	upload, err := h.openUpload(c)
	if err != nil {
		h.handleUploadError(c, err)
		return
	}
	defer upload.Close()

	resp, err := h.importSvc.Import(c.Request.Context(), upload, upload.name, mapping, caller)
	if err != nil {
		h.handleImportError(c, err)
		return
	}

	response.Created(c, resp)
}

// ListImports 获取导入批次列表
// GET /api/v1/imports
func (h *ImportHandler) ListImports(c *gin.Context) {
	var req dto.ImportBatchListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := h.importSvc.ListBatches(c.Request.Context(), &req)
	if err != nil {
		h.handleImportError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// GetImport 获取导入批次详情
// GET /api/v1/imports/:id
func (h *ImportHandler) GetImport(c *gin.Context) {
	batch, err := h.importSvc.GetBatch(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleImportError(c, err)
		return
	}

	response.OK(c, batch)
}

// Reimport 以新的列映射重新导入批次（整体替换该批次的活动）
// PUT /api/v1/imports/:id
func (h *ImportHandler) Reimport(c *gin.Context) {
	var req dto.ReimportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	resp, err := h.importSvc.Reimport(c.Request.Context(), c.Param("id"), &req, caller)
	if err != nil {
		h.handleImportError(c, err)
		return
	}

	response.OK(c, resp)
}

// DeleteImport 删除导入批次及其全部活动
// DELETE /api/v1/imports/:id
func (h *ImportHandler) DeleteImport(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	resp, err := h.importSvc.DeleteBatch(c.Request.Context(), c.Param("id"), caller)
	if err != nil {
		h.handleImportError(c, err)
		return
	}

	response.OK(c, resp)
}

func (h *ImportHandler) handleUploadError(c *gin.Context, err error) {
	if errors.Is(err, errUploadTooLarge) {
		response.Error(c, http.StatusRequestEntityTooLarge, 10005,
			fmt.Sprintf("上传文件不能超过 %d KB", h.maxFileBytes>>10))
		return
	}
	response.BadRequest(c, 18008, "请上传 xlsx 文件（字段 file）")
}

// handleImportError 统一处理导入模块业务错误
func (h *ImportHandler) handleImportError(c *gin.Context, err error) {
	var tooMany *service.ErrImportTooManyRows
	switch {
	case errors.Is(err, service.ErrImportBatchNotFound):
		response.NotFound(c, 18001, "导入批次不存在")
	case errors.Is(err, service.ErrImportMappingInvalid):
		response.BadRequest(c, 18002, err.Error())
	case errors.Is(err, service.ErrImportBatchConflict):
		response.Conflict(c, 18003, err.Error())
	case errors.Is(err, service.ErrImportUnreadable):
		response.BadRequest(c, 18004, "无法解析表格文件")
	case errors.Is(err, service.ErrImportNoData):
		response.BadRequest(c, 18005, "表格无数据行")
	case errors.Is(err, service.ErrImportSheetMissing):
		response.BadRequest(c, 18006, err.Error())
	case errors.As(err, &tooMany):
		response.BadRequest(c, 18007, tooMany.Error())
	default:
		handleStoreError(c, err)
	}
}
