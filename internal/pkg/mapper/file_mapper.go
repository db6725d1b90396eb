package mapper

import (
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/go-viper/mapstructure/v2"

	"github.com/3Eeeecho/go-sharelink/internal/models"
)

// FileToMap 将 models.File 转换为可写入 Redis 哈希的扁平 map
// 所有值都转成字符串，nil 指针写为空串
func FileToMap(file *models.File) map[string]any {
	mimeType := ""
	if file.MimeType != nil {
		mimeType = *file.MimeType
	}
	return map[string]any{
		"id":            strconv.FormatUint(file.ID, 10),
		"uuid":          file.UUID,
		"user_id":       strconv.FormatUint(file.UserID, 10),
		"filename":      file.FileName,
		"original_name": file.OriginalName,
		"size":          strconv.FormatUint(file.Size, 10),
		"mime_type":     mimeType,
		"oss_bucket":    file.OssBucket,
		"oss_key":       file.OssKey,
		"status":        strconv.FormatUint(uint64(file.Status), 10),
		"created_at":    formatTime(file.CreatedAt),
		"updated_at":    formatTime(file.UpdatedAt),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}

// stringHook 把哈希里的字符串转换成目标字段类型
func stringHook(f reflect.Type, t reflect.Type, data any) (any, error) {
	if f.Kind() != reflect.String {
		return data, nil
	}
	s := data.(string)

	// 空串: 指针为 nil，值类型取零值
	if s == "" {
		if t.Kind() == reflect.Ptr {
			return nil, nil
		}
		return reflect.Zero(t).Interface(), nil
	}

	if t == reflect.TypeOf(time.Time{}) {
		return time.Parse(time.RFC3339Nano, s)
	}

	switch t.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.ParseUint(s, 10, 64)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.ParseInt(s, 10, 64)
	}
	return data, nil
}

// MapToFile 将 Redis 哈希映射回 models.File
func MapToFile(dataMap map[string]string) (*models.File, error) {
	var file models.File

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &file,
		TagName:          "json", // 使用 'json' 标签来匹配 map 的键和结构体字段
		DecodeHook:       stringHook,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create map decoder: %w", err)
	}

	if err := decoder.Decode(dataMap); err != nil {
		return nil, fmt.Errorf("failed to decode map to File struct: %w", err)
	}
	return &file, nil
}
