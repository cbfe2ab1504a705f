package utils

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"
)

// DefaultExportName 导出文件的默认文件名(不含扩展名)
const DefaultExportName = "siamik_filtered"

// ExportFileName 返回导出文件名，name为空时使用默认值
func ExportFileName(name, ext string) string {
	if name == "" {
		name = DefaultExportName
	}
	return name + ext
}

// WriteFilteredCSV 把过滤后的规范表写为带表头的CSV，缺失值写为空单元格
func WriteFilteredCSV(w io.Writer, df dataframe.DataFrame) error {
	colNames := df.Names()
	columns := make([]series.Series, len(colNames))
	for j, name := range colNames {
		columns[j] = df.Col(name)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(colNames); err != nil {
		return fmt.Errorf("写入CSV失败: %w", err)
	}
	record := make([]string, len(columns))
	for i := 0; i < df.Nrow(); i++ {
		for j, col := range columns {
			if e := col.Elem(i); e.IsNA() {
				record[j] = ""
			} else {
				record[j] = e.String()
			}
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("写入CSV失败: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("写入CSV失败: %w", err)
	}
	return nil
}

// WriteExcel 把DataFrame写为xlsx
func WriteExcel(w io.Writer, df dataframe.DataFrame) error {
	f := newWorkbook(df)
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("写入Excel失败: %w", err)
	}
	return nil
}

// SaveToExcel 把DataFrame保存为Excel文件
func SaveToExcel(df dataframe.DataFrame, filePath string) error {
	if err := EnsureDir(filepath.Dir(filePath)); err != nil {
		return err
	}

	f := newWorkbook(df)
	defer f.Close()

	// 保存文件
	if err := f.SaveAs(filePath); err != nil {
		return fmt.Errorf("保存Excel文件失败: %w", err)
	}
	return nil
}

func newWorkbook(df dataframe.DataFrame) *excelize.File {
	f := excelize.NewFile()
	sheetName := "Sheet1"

	// 写入列名
	colNames := df.Names()
	for i, name := range colNames {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, name)
	}

	// 写入数据，缺失值留空
	for colIdx, colName := range colNames {
		col := df.Col(colName)
		for rowIdx := 0; rowIdx < df.Nrow(); rowIdx++ {
			e := col.Elem(rowIdx)
			if e.IsNA() {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			f.SetCellValue(sheetName, cell, e.Val())
		}
	}
	return f
}
