package models

import "github.com/shopspring/decimal"

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var defaultMenuItems = []MenuItem{
	{ID: "app-wings", Name: "Buffalo Wings", Description: "Crispy chicken wings tossed in buffalo sauce", Category: MenuCategoryAppetizer, Price: price("8.99"), Dietary: []string{DietSpicy}, Popular: true},
	{ID: "app-garlic-bread", Name: "Garlic Bread", Description: "Toasted bread with garlic butter and herbs", Category: MenuCategoryAppetizer, Price: price("5.99"), Dietary: []string{DietVegetarian}},
	{ID: "app-onion-rings", Name: "Onion Rings", Description: "Beer battered onion rings", Category: MenuCategoryAppetizer, Price: price("5.49"), Dietary: []string{DietVegetarian}},
	{ID: "app-caesar", Name: "Caesar Salad", Description: "Fresh romaine lettuce with caesar dressing and croutons", Category: MenuCategoryAppetizer, Price: price("9.99"), Dietary: []string{DietVegetarian}},

	{ID: "main-burger", Name: "Classic Burger", Description: "Beef patty with lettuce, tomato, onion and cheese", Category: MenuCategoryMain, Price: price("12.99"), Popular: true},
	{ID: "main-veggie-burger", Name: "Veggie Burger", Description: "Grilled plant-based patty with avocado", Category: MenuCategoryMain, Price: price("11.99"), Dietary: []string{DietVegetarian, DietVegan}},
	{ID: "main-pizza", Name: "Margherita Pizza", Description: "Fresh mozzarella, tomato sauce and basil", Category: MenuCategoryMain, Price: price("14.99"), Dietary: []string{DietVegetarian}, Popular: true},
	{ID: "main-carbonara", Name: "Pasta Carbonara", Description: "Spaghetti with eggs, cheese, pancetta and black pepper", Category: MenuCategoryMain, Price: price("16.99"), ChefRecommended: true},
	{ID: "main-salmon", Name: "Grilled Salmon", Description: "Atlantic salmon with seasonal vegetables", Category: MenuCategoryMain, Price: price("19.99"), Dietary: []string{DietGlutenFree}, ChefRecommended: true},

	{ID: "side-fries", Name: "French Fries", Description: "Golden fries with sea salt", Category: MenuCategorySide, Price: price("3.99"), Dietary: []string{DietVegan, DietGlutenFree}, Popular: true},
	{ID: "side-salad", Name: "Side Salad", Description: "Mixed greens with vinaigrette", Category: MenuCategorySide, Price: price("4.49"), Dietary: []string{DietVegan, DietGlutenFree}},

	{ID: "dessert-cheesecake", Name: "New York Cheesecake", Description: "Classic cheesecake with a graham cracker crust", Category: MenuCategoryDessert, Price: price("6.99"), Popular: true},
	{ID: "dessert-ice-cream", Name: "Vanilla Ice Cream", Description: "Two scoops of vanilla bean ice cream", Category: MenuCategoryDessert, Price: price("4.99"), Dietary: []string{DietVegetarian, DietGlutenFree}},
	{ID: "dessert-brownie", Name: "Chocolate Brownie", Description: "Warm fudge brownie", Category: MenuCategoryDessert, Price: price("5.99"), Dietary: []string{DietVegetarian}, ChefRecommended: true},

	{ID: "bev-cola", Name: "Coca Cola", Description: "Chilled can of Coca Cola", Category: MenuCategoryBeverage, Price: price("2.99"), Dietary: []string{DietVegan, DietGlutenFree}},
	{ID: "bev-iced-tea", Name: "Iced Tea", Description: "Fresh brewed iced tea with lemon", Category: MenuCategoryBeverage, Price: price("2.49"), Dietary: []string{DietVegan, DietGlutenFree}},
	{ID: "bev-coffee", Name: "Coffee", Description: "Freshly brewed house coffee", Category: MenuCategoryBeverage, Price: price("2.49"), Dietary: []string{DietVegan, DietGlutenFree}},
	{ID: "bev-milkshake", Name: "Chocolate Milkshake", Description: "Thick chocolate milkshake", Category: MenuCategoryBeverage, Price: price("4.99"), Dietary: []string{DietVegetarian}},
	{ID: "bev-wine", Name: "House Wine", Description: "Glass of red or white house wine", Category: MenuCategoryBeverage, Price: price("7.99"), Dietary: []string{DietVegan, DietGlutenFree}},
}

var defaultMenuAliases = map[string]string{
	"burger":       "Classic Burger",
	"cheeseburger": "Classic Burger",
	"hamburger":    "Classic Burger",
	"veggie":       "Veggie Burger",
	"pizza":        "Margherita Pizza",
	"margherita":   "Margherita Pizza",
	"pasta":        "Pasta Carbonara",
	"carbonara":    "Pasta Carbonara",
	"spaghetti":    "Pasta Carbonara",
	"salmon":       "Grilled Salmon",
	"fish":         "Grilled Salmon",
	"wings":        "Buffalo Wings",
	"wing":         "Buffalo Wings",
	"salad":        "Caesar Salad",
	"caesar":       "Caesar Salad",
	"garlic bread": "Garlic Bread",
	"bread":        "Garlic Bread",
	"onion ring":   "Onion Rings",
	"rings":        "Onion Rings",
	"fries":        "French Fries",
	"chips":        "French Fries",
	"cheesecake":   "New York Cheesecake",
	"ice cream":    "Vanilla Ice Cream",
	"brownie":      "Chocolate Brownie",
	"coke":         "Coca Cola",
	"coca":         "Coca Cola",
	"cola":         "Coca Cola",
	"coc":          "Coca Cola",
	"soda":         "Coca Cola",
	"soft drink":   "Coca Cola",
	"tea":          "Iced Tea",
	"milkshake":    "Chocolate Milkshake",
	"shake":        "Chocolate Milkshake",
	"wine":         "House Wine",
}

// DefaultMenu returns the built-in restaurant menu
func DefaultMenu() *Menu {
	menu, err := NewMenu(defaultMenuItems, defaultMenuAliases)
	if err != nil {
		panic(err)
	}
	return menu
}
