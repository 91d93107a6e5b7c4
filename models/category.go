package models

import "time"

// Category 消费类别，初始化时写入，运行期只读
type Category struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"size:50;not null;uniqueIndex"`
	Emoji     string    `json:"emoji" gorm:"size:16"`
	Sort      int       `json:"sort" gorm:"default:0;index"`
	CreatedAt time.Time `json:"created_at"`
}

func (Category) TableName() string {
	return "categories"
}

// Label 展示用名称，带图标
func (c Category) Label() string {
	if c.Emoji == "" {
		return c.Name
	}
	return c.Emoji + " " + c.Name
}

// 默认消费类别
const (
	CategoryFood          = "Food"
	CategoryTransport     = "Transport"
	CategoryShopping      = "Shopping"
	CategoryEntertainment = "Entertainment"
	CategoryBills         = "Bills"
	CategoryHealth        = "Health"
	CategoryHousing       = "Housing"
	CategoryOther         = "Other"
)

// DefaultCategories 返回初始化用的类别列表
func DefaultCategories() []Category {
	items := []struct {
		name  string
		emoji string
	}{
		{CategoryFood, "🍔"},
		{CategoryTransport, "🚗"},
		{CategoryShopping, "🛍️"},
		{CategoryEntertainment, "🎬"},
		{CategoryBills, "🧾"},
		{CategoryHealth, "💊"},
		{CategoryHousing, "🏠"},
		{CategoryOther, "📦"},
	}
	cats := make([]Category, 0, len(items))
	for i, item := range items {
		cats = append(cats, Category{Name: item.name, Emoji: item.emoji, Sort: (i + 1) * 10})
	}
	return cats
}
