package domain

import "time"

// SampleTrip returns the built-in example journey: the November round-island
// rail trip, with reviews and expenses cleared. It seeds the local-file
// backend when no data file exists yet and backs the "import sample"
// operation, so a fresh install never shows an empty list.
//
// The returned value is freshly built on every call; callers may mutate it.
func SampleTrip() Trip {
	day := func(date string, activities ...Activity) DayEntry {
		d, _ := ParseDate(date)
		return DayEntry{Date: d, Activities: activities}
	}
	act := func(id string, kind ActivityKind, title string) Activity {
		return Activity{ID: id, Kind: kind, Title: title, Reviews: []Review{}}
	}

	return Trip{
		Title:         "11月火車環島快閃",
		Location:      "台灣-花蓮 台東 高雄 台南 嘉義",
		International: false,
		StartDate:     NewDate(2025, time.November, 19),
		EndDate:       NewDate(2025, time.November, 23),
		Members:       []string{"Hugo", "仁駿", "Hiro"},
		Photos: []string{
			"https://images.unsplash.com/photo-1552993873-0dd1110e025f?q=80&w=1000&auto=format&fit=crop",
			"https://images.unsplash.com/photo-1594396656731-9556a3df54f5?q=80&w=1000&auto=format&fit=crop",
			"https://images.unsplash.com/photo-1508248742801-71f98d407357?q=80&w=1000&auto=format&fit=crop",
		},
		Expenses: []Expense{},
		Notes:    []Note{},
		Itinerary: []DayEntry{
			day("2025-11-19",
				act("d1-1", KindSpot, "花蓮 - 慶修院"),
				act("d1-2", KindSpot, "花蓮 - 鯉魚潭"),
				act("d1-3", KindFood, "花蓮 - 依蓮小吃"),
				act("d1-4", KindFood, "花蓮 - 厚點甜"),
				act("d1-5", KindSpot, "花蓮 - 將軍府1936"),
				act("d1-6", KindFood, "花蓮 - 東大門夜市"),
			),
			day("2025-11-20",
				act("d2-1", KindSpot, "花蓮 - 楓林步道"),
				act("d2-2", KindFood, "台東 - 柴米Daily Kitchen"),
				act("d2-3", KindSpot, "台東 - 台東海濱公園"),
				act("d2-4", KindFood, "台東 - 海特咖啡"),
				act("d2-5", KindSpot, "台東 - 鐵花村"),
				act("d2-6", KindFood, "台東 - 榕樹下米苔目"),
				act("d2-7", KindFood, "台東 - 藍蜻蜓速食"),
			),
			day("2025-11-21",
				act("d3-1", KindFood, "高雄 - 麵店（待確認）"),
				act("d3-2", KindSpot, "高雄 - 衛武營都會公園"),
				act("d3-3", KindSpot, "高雄 - 高雄港區(Twice應援）"),
				act("d3-4", KindFood, "高雄 - 老江紅茶牛奶"),
				act("d3-5", KindFood, "高雄 - 鍾家綠豆湯大王"),
			),
			day("2025-11-22",
				act("d4-1", KindFood, "高雄 - 陳賣賣手做飯糰"),
				act("d4-2", KindSpot, "台南 - 台南公園"),
				act("d4-3", KindFood, "台南 - TUGU荼谷"),
				act("d4-4", KindFood, "台南 - 老吳冰室"),
				act("d4-5", KindFood, "台南 - 厚奶的我們"),
				act("d4-6", KindSpot, "台南 - 水交社文化園區"),
				act("d4-7", KindSpot, "台南 - 漁光島"),
				act("d4-8", KindFood, "台南 - 今鶴餐酒館"),
				act("d4-9", KindFood, "台南 - 悅津鹹粥"),
			),
			day("2025-11-23",
				act("d5-1", KindFood, "台南 - 西羅殿牛肉湯"),
				act("d5-2", KindFood, "台南 - 一味品碗粿"),
				act("d5-3", KindFood, "台南 - 木匠手烘咖啡"),
				act("d5-4", KindSpot, "台南 - 水仙宮"),
				act("d5-5", KindFood, "嘉義 - 桃城三禾雞肉飯"),
				act("d5-6", KindSpot, "嘉義 - 嘉義公園"),
				act("d5-7", KindFood, "嘉義 - 大同火雞肉飯"),
				act("d5-8", KindFood, "嘉義 - 榮興茶行"),
			),
		},
	}
}
