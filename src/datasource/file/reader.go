// reader.go
package file

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/go-gota/gota/dataframe"
	"github.com/tealeg/xlsx"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrNoRows 数据文件可以解析但没有任何数据行
var ErrNoRows = errors.New("dataset has no rows")

// nanValues 视为缺失值的单元格内容，与pandas.read_csv的默认行为保持一致
var nanValues = []string{"", "NA", "N/A", "NaN", "nan", "null", "<nil>"}

// LoadFailure 数据集加载失败(文件缺失、不可读或无法解析)
type LoadFailure struct {
	Path string
	Err  error
}

func (f *LoadFailure) Error() string {
	return fmt.Sprintf("failed to load dataset (%s): %v", f.Path, f.Err)
}

func (f *LoadFailure) Unwrap() error { return f.Err }

// TableLoader 将文件读取为DataFrame
type TableLoader interface {
	Load(path string) (dataframe.DataFrame, error)
}

// Loader 问卷数据加载器，支持csv和xlsx
type Loader struct {
	SheetName string // xlsx工作表名，为空时取第一个工作表
}

// NewLoader 创建加载器
func NewLoader(sheetName string) *Loader {
	return &Loader{SheetName: sheetName}
}

// Load 读取path指向的表格文件
// 失败时返回空DataFrame(0行0列)和*LoadFailure，调用方应当把空表当作"无数据"
func (l *Loader) Load(path string) (dataframe.DataFrame, error) {
	var (
		df  dataframe.DataFrame
		err error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		df, err = ReadXLSX(path, l.SheetName)
	default:
		df, err = ReadCSV(path)
	}

	if err == nil && df.Nrow() == 0 {
		err = ErrNoRows
	}
	if err != nil {
		return dataframe.New(), &LoadFailure{Path: path, Err: err}
	}
	return df, nil
}

// ReadCSV 读取带表头的csv文件并自动推断列类型
func ReadCSV(path string) (dataframe.DataFrame, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return dataframe.New(), err
	}
	df, err := ParseCSV(raw)
	if err != nil {
		return dataframe.New(), fmt.Errorf("parse %s: %w", path, err)
	}
	return df, nil
}

// ParseCSV 解析内存中的csv内容
func ParseCSV(raw []byte) (dataframe.DataFrame, error) {
	text, err := DecodeText(raw)
	if err != nil {
		return dataframe.New(), fmt.Errorf("decode: %w", err)
	}

	df := dataframe.ReadCSV(bytes.NewReader(text),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.NaNValues(nanValues),
	)
	if df.Err != nil {
		return dataframe.New(), df.Err
	}
	return df, nil
}

// ParseBytes 按文件扩展名解析内存中的表格内容，用于校验邮件附件
func ParseBytes(name string, data []byte, sheetName string) (dataframe.DataFrame, error) {
	var (
		df  dataframe.DataFrame
		err error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx":
		df, err = ParseXLSX(data, sheetName)
	default:
		df, err = ParseCSV(data)
	}
	if err == nil && df.Nrow() == 0 {
		err = ErrNoRows
	}
	return df, err
}

// DecodeText 把文件内容统一转为不带BOM的UTF-8
// 带BOM的UTF-8/UTF-16按BOM解码；其余非法UTF-8按Windows-1252解码
func DecodeText(raw []byte) ([]byte, error) {
	if bytes.HasPrefix(raw, []byte{0xFE, 0xFF}) || bytes.HasPrefix(raw, []byte{0xFF, 0xFE}) {
		text, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), raw)
		return text, err
	}

	raw = bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF})
	if utf8.Valid(raw) {
		return raw, nil
	}

	text, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), raw)
	if err != nil {
		return nil, err
	}
	return text, nil
}

// ReadXLSX 读取xlsx工作表，第一行为表头
func ReadXLSX(filePath, sheetName string) (dataframe.DataFrame, error) {
	// 1. 使用tealeg/xlsx打开Excel文件
	xlFile, err := xlsx.OpenFile(filePath)
	if err != nil {
		return dataframe.New(), fmt.Errorf("xlsx open file false: %w", err)
	}
	return sheetFrame(xlFile, sheetName)
}

// ParseXLSX 解析内存中的xlsx内容
func ParseXLSX(data []byte, sheetName string) (dataframe.DataFrame, error) {
	xlFile, err := xlsx.OpenBinary(data)
	if err != nil {
		return dataframe.New(), fmt.Errorf("xlsx open binary false: %w", err)
	}
	return sheetFrame(xlFile, sheetName)
}

func sheetFrame(xlFile *xlsx.File, sheetName string) (dataframe.DataFrame, error) {
	// 2. 获取工作表，找不到时取第一个
	if len(xlFile.Sheets) == 0 {
		return dataframe.New(), fmt.Errorf("excel文件中没有工作表")
	}
	sheet, ok := xlFile.Sheet[sheetName]
	if !ok || sheet == nil {
		sheet = xlFile.Sheets[0]
	}

	// 3. 转换为Gota DataFrame
	return convertSheetToDataFrame(sheet)
}

// convertSheetToDataFrame 将xlsx.Sheet转换为dataframe.DataFrame
func convertSheetToDataFrame(sheet *xlsx.Sheet) (dataframe.DataFrame, error) {
	if len(sheet.Rows) == 0 {
		return dataframe.New(), fmt.Errorf("sheet %s is empty", sheet.Name)
	}

	// 获取列名(第一行是标题行)
	var headers []string
	for _, cell := range sheet.Rows[0].Cells {
		headers = append(headers, strings.TrimSpace(cell.String()))
	}
	for len(headers) > 0 && headers[len(headers)-1] == "" {
		headers = headers[:len(headers)-1]
	}
	if len(headers) == 0 {
		return dataframe.New(), fmt.Errorf("sheet %s has no header", sheet.Name)
	}

	records := make([][]string, 0, len(sheet.Rows))
	records = append(records, headers)

	// 填充数据(从第二行开始)，短行补空值
	for _, row := range sheet.Rows[1:] {
		if row == nil {
			continue
		}
		record := make([]string, len(headers))
		empty := true
		for i, cell := range row.Cells {
			if i >= len(headers) { // 确保不超出列数范围
				break
			}
			record[i] = cell.String()
			if record[i] != "" {
				empty = false
			}
		}
		if !empty {
			records = append(records, record)
		}
	}

	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.NaNValues(nanValues),
	)
	if df.Err != nil {
		return dataframe.New(), df.Err
	}
	return df, nil
}
