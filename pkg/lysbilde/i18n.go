package lysbilde

import "sort"

// Translations is a flat i18n string table for one language.
type Translations map[string]string

// translations holds the built-in language tables, keyed by language code.
var translations = map[string]Translations{
	"en": {
		"nav.previous": "Previous",
		"nav.next":     "Next",
		"nav.index":    "Index",
		"nav.close":    "Close",

		"section.albums":    "Albums",
		"section.photo":     "Photo",
		"section.date":      "Date",
		"section.camera":    "Camera",
		"section.exposure":  "Exposure",
		"section.location":  "Location",
		"section.copyright": "Copyright",

		"field.name":         "Name",
		"field.taken":        "Taken",
		"field.camera":       "Camera",
		"field.lens":         "Lens",
		"field.aperture":     "Aperture",
		"field.shutter":      "Shutter",
		"field.iso":          "ISO",
		"field.focal_length": "Focal Length",
		"field.place":        "Place",
		"field.country":      "Country",
		"field.coordinates":  "Coordinates",

		"action.download":    "Download Original",
		"action.toggle_info": "Toggle info",

		"program.manual":            "Manual",
		"program.program":           "Program",
		"program.aperture_priority": "Aperture priority",
		"program.shutter_priority":  "Shutter priority",
		"program.creative":          "Creative",
		"program.action":            "Action",
		"program.portrait":          "Portrait",
		"program.landscape":         "Landscape",
	},
	"zh_CN": {
		"nav.previous": "上一张",
		"nav.next":     "下一张",
		"nav.index":    "索引",
		"nav.close":    "关闭",

		"section.albums":    "相册",
		"section.photo":     "照片",
		"section.date":      "日期",
		"section.camera":    "相机",
		"section.exposure":  "曝光",
		"section.location":  "位置",
		"section.copyright": "版权",

		"field.name":         "名称",
		"field.taken":        "拍摄时间",
		"field.camera":       "相机",
		"field.lens":         "镜头",
		"field.aperture":     "光圈",
		"field.shutter":      "快门",
		"field.iso":          "ISO",
		"field.focal_length": "焦距",
		"field.place":        "地点",
		"field.country":      "国家",
		"field.coordinates":  "坐标",

		"action.download":    "下载原图",
		"action.toggle_info": "切换信息",

		"program.manual":            "手动",
		"program.program":           "程序",
		"program.aperture_priority": "光圈优先",
		"program.shutter_priority":  "快门优先",
		"program.creative":          "创意",
		"program.action":            "运动",
		"program.portrait":          "人像",
		"program.landscape":         "风景",
	},
}

// supportedLanguages lists the built-in language codes, sorted.
func supportedLanguages() []string {
	langs := make([]string, 0, len(translations))
	for code := range translations {
		langs = append(langs, code)
	}
	sort.Strings(langs)
	return langs
}
