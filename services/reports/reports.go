package reports

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"geoattend_go/database"
	"geoattend_go/models"
	"geoattend_go/services/attendance"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// Service builds XLSX attendance registers for a subject and term. The
// register is one row per student and one column per held class date, with a
// summary block on the right.
type Service struct {
	db        *gorm.DB
	awsConfig aws.Config
	awsReady  bool
}

func NewService() *Service {
	cfg, err := awscfg.LoadDefaultConfig(context.Background(), awscfg.WithRegion(os.Getenv("AWS_REGION")))
	ready := err == nil && cfg.Region != ""
	if err != nil {
		logrus.WithError(err).Warn("Failed to load AWS config; report uploads disabled")
	}

	return &Service{
		db:        database.GetDB(),
		awsConfig: cfg,
		awsReady:  ready,
	}
}

// statusLetter is the single-cell register notation.
func statusLetter(status string) string {
	switch status {
	case models.StatusPresent:
		return "P"
	case models.StatusLate:
		return "L"
	case models.StatusAbsent:
		return "A"
	case models.StatusExcused:
		return "E"
	case models.StatusPending:
		return "?"
	default:
		return ""
	}
}

type registerRow struct {
	student models.User
	// status letter per class-date key "2006-01-02 15:04"
	cells   map[string]string
	present int
	late    int
	absent  int
	excused int
}

// BuildRegister renders the attendance register for one subject and term as
// an XLSX workbook.
func (s *Service) BuildRegister(subjectID uint, term string) (*bytes.Buffer, string, error) {
	var subject models.Subject
	if err := s.db.First(&subject, subjectID).Error; err != nil {
		return nil, "", fmt.Errorf("subject not found: %w", err)
	}

	var records []models.AttendanceRecord
	err := s.db.Preload("Student").
		Where("subject_id = ? AND term = ?", subjectID, term).
		Order("class_date ASC, start_time ASC").
		Find(&records).Error
	if err != nil {
		return nil, "", fmt.Errorf("failed to load attendance records: %w", err)
	}

	// Collect the distinct held sessions and per-student rows.
	sessionKeys := make([]string, 0)
	seenSession := make(map[string]bool)
	rowsByStudent := make(map[uint]*registerRow)

	for _, r := range records {
		key := r.ClassDate.Format("2006-01-02") + " " + r.StartTime
		if !seenSession[key] {
			seenSession[key] = true
			sessionKeys = append(sessionKeys, key)
		}

		row, ok := rowsByStudent[r.StudentID]
		if !ok {
			row = &registerRow{student: r.Student, cells: make(map[string]string)}
			rowsByStudent[r.StudentID] = row
		}
		row.cells[key] = statusLetter(r.Status)
		switch r.Status {
		case models.StatusPresent:
			row.present++
		case models.StatusLate:
			row.late++
		case models.StatusAbsent:
			row.absent++
		case models.StatusExcused:
			row.excused++
		}
	}

	rows := make([]*registerRow, 0, len(rowsByStudent))
	for _, row := range rowsByStudent {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].student.LastName != rows[j].student.LastName {
			return rows[i].student.LastName < rows[j].student.LastName
		}
		return rows[i].student.FirstName < rows[j].student.FirstName
	})

	f := excelize.NewFile()
	defer f.Close()
	sheet := "Register"
	f.SetSheetName("Sheet1", sheet)

	// Header block
	f.SetCellValue(sheet, "A1", fmt.Sprintf("%s - %s", subject.Code, subject.Name))
	f.SetCellValue(sheet, "A2", fmt.Sprintf("Term: %s", term))
	f.SetCellValue(sheet, "A3", fmt.Sprintf("Generated: %s", time.Now().Format("2006-01-02 15:04")))

	headerRow := 5
	f.SetCellValue(sheet, cell(1, headerRow), "Student")
	for i, key := range sessionKeys {
		f.SetCellValue(sheet, cell(2+i, headerRow), key)
	}
	summaryStart := 2 + len(sessionKeys)
	for i, h := range []string{"Present", "Late", "Absent", "Excused", "Percent"} {
		f.SetCellValue(sheet, cell(summaryStart+i, headerRow), h)
	}

	for i, row := range rows {
		r := headerRow + 1 + i
		f.SetCellValue(sheet, cell(1, r), fmt.Sprintf("%s %s", row.student.FirstName, row.student.LastName))
		for j, key := range sessionKeys {
			if letter, ok := row.cells[key]; ok {
				f.SetCellValue(sheet, cell(2+j, r), letter)
			} else {
				f.SetCellValue(sheet, cell(2+j, r), "-")
			}
		}
		total := int64(len(sessionKeys))
		f.SetCellValue(sheet, cell(summaryStart, r), row.present)
		f.SetCellValue(sheet, cell(summaryStart+1, r), row.late)
		f.SetCellValue(sheet, cell(summaryStart+2, r), row.absent)
		f.SetCellValue(sheet, cell(summaryStart+3, r), row.excused)
		f.SetCellValue(sheet, cell(summaryStart+4, r),
			fmt.Sprintf("%d%%", attendance.AttendancePercent(int64(row.present+row.late), total)))
	}

	f.SetColWidth(sheet, "A", "A", 28)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("failed to render workbook: %w", err)
	}

	fileName := fmt.Sprintf("attendance_%s_%s_%s.xlsx", subject.Code, term, time.Now().Format("20060102"))
	return buf, fileName, nil
}

// UploadRegister stores a rendered register in S3 and returns the object key.
func (s *Service) UploadRegister(fileName string, data *bytes.Buffer) (string, error) {
	if !s.awsReady {
		return "", fmt.Errorf("AWS not configured")
	}

	key := fmt.Sprintf("reports/%d/%s_%s", time.Now().Year(), uuid.New().String()[:16], fileName)
	bucketName := os.Getenv("S3_BUCKET_NAME")

	s3Client := s3.NewFromConfig(s.awsConfig)
	_, err := s3Client.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket:      &bucketName,
		Key:         &key,
		Body:        bytes.NewReader(data.Bytes()),
		ContentType: aws.String("application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"),
	})
	if err != nil {
		return "", err
	}

	return key, nil
}

// cell converts 1-based column and row indexes to an A1 reference.
func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
