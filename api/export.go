package api

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"budgetbot/database"
	"budgetbot/logger"
	"budgetbot/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ExpenseSource 导出所需的查询
type ExpenseSource interface {
	GetUserByIdentity(ctx context.Context, identityID int64) (*models.User, error)
	ListExpensesInRange(ctx context.Context, userID uint, from, to time.Time) ([]models.Expense, error)
}

// ExportHandler 导出处理器
type ExportHandler struct {
	source ExpenseSource
}

// NewExportHandler 创建导出处理器
func NewExportHandler(source ExpenseSource) *ExportHandler {
	return &ExportHandler{source: source}
}

type exportQuery struct {
	identityID int64
	startStr   string
	endStr     string
	start      time.Time
	end        time.Time
}

// loadExpenses 解析查询参数并取出数据，失败时已写入响应
func (h *ExportHandler) loadExpenses(c *gin.Context) (*exportQuery, []models.Expense, bool) {
	q := &exportQuery{startStr: c.Query("start"), endStr: c.Query("end")}

	id, err := strconv.ParseInt(c.Query("identity_id"), 10, 64)
	if err != nil || id <= 0 {
		BadRequest(c, "请提供有效的 identity_id")
		return nil, nil, false
	}
	q.identityID = id

	if q.startStr == "" || q.endStr == "" {
		BadRequest(c, "请提供开始日期和结束日期")
		return nil, nil, false
	}
	if q.start, err = time.Parse(models.ISODateLayout, q.startStr); err != nil {
		BadRequest(c, "开始日期格式错误，应为: 2006-01-02")
		return nil, nil, false
	}
	if q.end, err = time.Parse(models.ISODateLayout, q.endStr); err != nil {
		BadRequest(c, "结束日期格式错误，应为: 2006-01-02")
		return nil, nil, false
	}
	if q.end.Before(q.start) {
		BadRequest(c, "结束日期不能早于开始日期")
		return nil, nil, false
	}

	ctx := c.Request.Context()
	user, err := h.source.GetUserByIdentity(ctx, q.identityID)
	if errors.Is(err, database.ErrNotFound) {
		NotFound(c, "用户不存在")
		return nil, nil, false
	}
	if err != nil {
		logger.Get().Error("导出查询用户失败", zap.Int64("identity_id", q.identityID), zap.Error(err))
		InternalError(c, "查询数据失败: "+SafeErrorMessage(err, "存储不可用"))
		return nil, nil, false
	}

	expenses, err := h.source.ListExpensesInRange(ctx, user.ID, q.start, q.end)
	if err != nil {
		logger.Get().Error("导出查询消费失败", zap.Int64("identity_id", q.identityID), zap.Error(err))
		InternalError(c, "查询数据失败: "+SafeErrorMessage(err, "存储不可用"))
		return nil, nil, false
	}
	return q, expenses, true
}

func categoryName(e *models.Expense) string {
	if e.Category == nil {
		return ""
	}
	return e.Category.Name
}

// ExportCSV 导出消费记录为 CSV
// @Summary 导出消费记录为 CSV
// @Description 导出指定身份在日期范围内的消费记录
// @Tags 导出
// @Produce text/csv
// @Security BearerAuth
// @Param identity_id query int true "聊天平台身份 ID"
// @Param start query string true "开始日期 (2025-01-01)"
// @Param end query string true "结束日期 (2025-01-31)"
// @Success 200 {file} file "CSV 文件"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 404 {object} Response "用户不存在"
// @Router /api/v1/export/csv [get]
func (h *ExportHandler) ExportCSV(c *gin.Context) {
	q, expenses, ok := h.loadExpenses(c)
	if !ok {
		return
	}

	buf := new(bytes.Buffer)
	// BOM，Excel 打开时按 UTF-8 识别
	buf.WriteString("\xEF\xBB\xBF")
	writer := csv.NewWriter(buf)

	_ = writer.Write([]string{"ID", "Date", "Amount", "Category", "Description", "Budget ID", "Created At"})
	for i := range expenses {
		e := &expenses[i]
		budgetID := ""
		if e.BudgetID != nil {
			budgetID = strconv.FormatUint(uint64(*e.BudgetID), 10)
		}
		_ = writer.Write([]string{
			strconv.FormatUint(uint64(e.ID), 10),
			e.ExpenseDate.Format(models.ISODateLayout),
			e.Amount.StringFixed(2),
			categoryName(e),
			e.Description,
			budgetID,
			e.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		InternalError(c, "生成 CSV 失败")
		return
	}

	filename := fmt.Sprintf("expenses_%d_%s_%s.csv", q.identityID, q.startStr, q.endStr)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// ExportExcel 导出消费记录为 Excel，末行为合计
// @Summary 导出消费记录为 Excel
// @Description 导出指定身份在日期范围内的消费记录，并附合计行
// @Tags 导出
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param identity_id query int true "聊天平台身份 ID"
// @Param start query string true "开始日期 (2025-01-01)"
// @Param end query string true "结束日期 (2025-01-31)"
// @Success 200 {file} file "Excel 文件"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 404 {object} Response "用户不存在"
// @Router /api/v1/export/excel [get]
func (h *ExportHandler) ExportExcel(c *gin.Context) {
	q, expenses, ok := h.loadExpenses(c)
	if !ok {
		return
	}

	f, err := buildWorkbook(expenses)
	if err != nil {
		InternalError(c, "生成 Excel 失败")
		return
	}
	defer f.Close()

	filename := fmt.Sprintf("expenses_%d_%s_%s.xlsx", q.identityID, q.startStr, q.endStr)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	if err := f.Write(c.Writer); err != nil {
		logger.Get().Error("写出 Excel 失败", zap.Error(err))
	}
}

const sheetName = "Expenses"

func cellBorder() []excelize.Border {
	return []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
	}
}

// buildWorkbook 生成工作簿：表头、明细、合计
func buildWorkbook(expenses []models.Expense) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		f.Close()
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4F81BD"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    cellBorder(),
	})
	if err != nil {
		f.Close()
		return nil, err
	}
	dataStyle, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Vertical: "center"},
		Border:    cellBorder(),
	})
	summaryStyle, _ := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Size: 11},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"FFC000"}, Pattern: 1},
		Border: cellBorder(),
	})

	widths := map[string]float64{"A": 8, "B": 14, "C": 12, "D": 16, "E": 36}
	for col, w := range widths {
		_ = f.SetColWidth(sheetName, col, col, w)
	}

	headers := []string{"ID", "Date", "Amount", "Category", "Description"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, header)
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	total := decimal.Zero
	for i := range expenses {
		e := &expenses[i]
		row := i + 2
		amount, _ := e.Amount.Round(2).Float64()
		_ = f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), e.ID)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), e.ExpenseDate.Format(models.ISODateLayout))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), amount)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), categoryName(e))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), e.Description)
		_ = f.SetCellStyle(sheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("E%d", row), dataStyle)
		total = total.Add(e.Amount)
	}

	summaryRow := len(expenses) + 2
	totalValue, _ := total.Round(2).Float64()
	_ = f.SetCellValue(sheetName, fmt.Sprintf("A%d", summaryRow), "Total")
	_ = f.MergeCell(sheetName, fmt.Sprintf("A%d", summaryRow), fmt.Sprintf("B%d", summaryRow))
	_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", summaryRow), totalValue)
	_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", summaryRow), fmt.Sprintf("%d records", len(expenses)))
	_ = f.MergeCell(sheetName, fmt.Sprintf("D%d", summaryRow), fmt.Sprintf("E%d", summaryRow))
	_ = f.SetCellStyle(sheetName, fmt.Sprintf("A%d", summaryRow), fmt.Sprintf("E%d", summaryRow), summaryStyle)

	return f, nil
}
