package controllers

import (
	"io"

	"geoattend_go/middleware"
	"geoattend_go/services/logarchive"
	"geoattend_go/services/reports"

	"github.com/gofiber/fiber/v2"
)

// ReportController serves XLSX attendance registers and the archived
// activity-log downloads. Professor/admin only.
type ReportController struct {
	Reports  *reports.Service
	Archives *logarchive.Service
}

func NewReportController(reportsSvc *reports.Service, archiveSvc *logarchive.Service) *ReportController {
	return &ReportController{Reports: reportsSvc, Archives: archiveSvc}
}

// Register handles GET /api/reports/register?subject_id=&term=. With
// ?upload=true the workbook is stored in S3 and the object key returned
// instead of the file body.
func (rc *ReportController) Register(c *fiber.Ctx) error {
	subjectID := c.QueryInt("subject_id")
	term := c.Query("term")
	if subjectID < 1 || term == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "subject_id and term are required"})
	}

	buf, fileName, err := rc.Reports.BuildRegister(uint(subjectID), term)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}

	middleware.LogActivity(c, "EXPORT", "reports", uint(subjectID), fiber.Map{"term": term})

	if c.QueryBool("upload") {
		key, err := rc.Reports.UploadRegister(fileName, buf)
		if err != nil {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Upload failed: " + err.Error()})
		}
		return c.JSON(fiber.Map{"message": "Report uploaded", "s3_key": key})
	}

	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", `attachment; filename="`+fileName+`"`)
	return c.Send(buf.Bytes())
}

// ListArchives handles GET /api/reports/log-archives (admin only)
func (rc *ReportController) ListArchives(c *fiber.Ctx) error {
	archives, err := rc.Archives.GetArchivedLogs()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list archives"})
	}
	return c.JSON(fiber.Map{"archives": archives})
}

// DownloadArchive handles GET /api/reports/log-archives/:id (admin only)
func (rc *ReportController) DownloadArchive(c *fiber.Ctx) error {
	archiveID, err := c.ParamsInt("id")
	if err != nil || archiveID < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid archive ID"})
	}

	reader, fileName, err := rc.Archives.DownloadArchivedLogs(uint(archiveID))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Failed to read archive"})
	}

	c.Set("Content-Type", "application/zip")
	c.Set("Content-Disposition", `attachment; filename="`+fileName+`"`)
	return c.Send(data)
}
