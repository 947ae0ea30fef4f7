package main

import "lg/mealmind-go-api/internal/mealplan"

// food is one catalog dish. Tags name the restrictions it satisfies.
type food struct {
	mealplan.Meal
	Slots []mealplan.Slot
	Tags  []string
}

// activityKind is one catalog exercise.
type activityKind struct {
	Name            string
	CaloriesPerHour float64
	Intensity       mealplan.Intensity
}

const (
	tagVegetarian = "vegetarian"
	tagVegan      = "vegan"
	tagGlutenFree = "gluten_free"
	tagDairyFree  = "dairy_free"
	tagHalal      = "halal"
)

// knownRestrictions are the restriction names the catalog can honor.
// Anything else a profile lists is ignored when filtering.
var knownRestrictions = map[string]bool{
	tagVegetarian: true,
	tagVegan:      true,
	tagGlutenFree: true,
	tagDairyFree:  true,
	tagHalal:      true,
}

var (
	bf = []mealplan.Slot{mealplan.Breakfast}
	ld = []mealplan.Slot{mealplan.Lunch, mealplan.Dinner}
)

func dish(name string, kcal int, protein, carbs, fat float64, slots []mealplan.Slot, tags ...string) food {
	return food{
		Meal:  mealplan.Meal{Name: name, Calories: kcal, Protein: protein, Carbs: carbs, Fat: fat},
		Slots: slots,
		Tags:  tags,
	}
}

var foodCatalog = []food{
	// breakfast
	dish("Oatmeal with Banana", 350, 10, 62, 7, bf, tagVegetarian, tagVegan, tagDairyFree, tagHalal),
	dish("Greek Yogurt Parfait", 320, 20, 40, 8, bf, tagVegetarian, tagGlutenFree, tagHalal),
	dish("Scrambled Eggs on Toast", 420, 22, 30, 22, bf, tagVegetarian, tagDairyFree, tagHalal),
	dish("Veggie Omelette", 380, 24, 8, 27, bf, tagVegetarian, tagGlutenFree, tagHalal),
	dish("Avocado Toast", 450, 12, 45, 25, bf, tagVegetarian, tagVegan, tagDairyFree, tagHalal),
	dish("Nasi Uduk", 550, 14, 78, 20, bf, tagDairyFree, tagHalal, tagGlutenFree),
	dish("Smoothie Bowl", 400, 10, 70, 9, bf, tagVegetarian, tagVegan, tagGlutenFree, tagDairyFree, tagHalal),
	dish("Pancakes with Berries", 600, 14, 95, 18, bf, tagVegetarian, tagHalal),
	dish("Chia Pudding", 300, 9, 30, 15, bf, tagVegetarian, tagVegan, tagGlutenFree, tagDairyFree, tagHalal),
	dish("Bubur Ayam", 480, 22, 65, 13, bf, tagDairyFree, tagHalal),
	dish("Peanut Butter Toast", 520, 18, 50, 27, bf, tagVegetarian, tagVegan, tagDairyFree, tagHalal),
	dish("Breakfast Burrito", 700, 32, 70, 30, bf, tagHalal),

	// lunch and dinner
	dish("Grilled Chicken Salad", 450, 40, 15, 24, ld, tagGlutenFree, tagDairyFree, tagHalal),
	dish("Gado-Gado", 520, 20, 45, 28, ld, tagVegetarian, tagVegan, tagGlutenFree, tagDairyFree, tagHalal),
	dish("Salmon with Brown Rice", 650, 42, 60, 24, ld, tagGlutenFree, tagDairyFree, tagHalal),
	dish("Beef Stir Fry", 700, 40, 55, 32, ld, tagDairyFree, tagHalal),
	dish("Lentil Curry with Rice", 600, 24, 90, 14, ld, tagVegetarian, tagVegan, tagGlutenFree, tagDairyFree, tagHalal),
	dish("Turkey Wrap", 520, 34, 48, 18, ld, tagDairyFree),
	dish("Pasta Primavera", 680, 20, 105, 18, ld, tagVegetarian, tagHalal),
	dish("Tofu Buddha Bowl", 580, 26, 70, 20, ld, tagVegetarian, tagVegan, tagGlutenFree, tagDairyFree, tagHalal),
	dish("Chicken Satay with Lontong", 750, 45, 70, 30, ld, tagGlutenFree, tagDairyFree, tagHalal),
	dish("Ikan Bakar with Vegetables", 550, 48, 25, 26, ld, tagGlutenFree, tagDairyFree, tagHalal),
	dish("Quinoa Black Bean Bowl", 620, 24, 95, 15, ld, tagVegetarian, tagVegan, tagGlutenFree, tagDairyFree, tagHalal),
	dish("Pork Chop with Potatoes", 820, 48, 60, 40, ld, tagGlutenFree),
	dish("Nasi Goreng", 900, 28, 110, 36, ld, tagDairyFree, tagHalal),
	dish("Mushroom Risotto", 850, 18, 115, 32, ld, tagVegetarian, tagGlutenFree, tagHalal),
	dish("Soto Ayam", 400, 30, 35, 14, ld, tagGlutenFree, tagDairyFree, tagHalal),
	dish("Vegetable Soup with Bread", 350, 10, 55, 9, ld, tagVegetarian, tagVegan, tagDairyFree, tagHalal),
	dish("Steak with Sweet Potato", 1000, 60, 70, 50, ld, tagGlutenFree, tagDairyFree, tagHalal),
}

// fallbackMeals are used when no catalog dish satisfies the filters.
var fallbackMeals = map[mealplan.Slot]mealplan.Meal{
	mealplan.Breakfast: {Name: "Fruit and Nut Bowl", Calories: 350, Protein: 8, Carbs: 45, Fat: 16},
	mealplan.Lunch:     {Name: "Mixed Green Salad with Beans", Calories: 500, Protein: 18, Carbs: 60, Fat: 20},
	mealplan.Dinner:    {Name: "Steamed Vegetables with Rice", Calories: 600, Protein: 14, Carbs: 110, Fat: 10},
}

var activityCatalog = []activityKind{
	{"Jogging", 400, mealplan.Medium},
	{"Cycling", 300, mealplan.Medium},
	{"Swimming", 500, mealplan.High},
	{"Brisk Walking", 200, mealplan.Low},
	{"Aerobics", 350, mealplan.Medium},
	{"Push-ups and Sit-ups", 250, mealplan.Medium},
	{"Yoga", 180, mealplan.Low},
	{"Badminton", 320, mealplan.Medium},
	{"Interval Running", 450, mealplan.High},
	{"Jump Rope", 600, mealplan.High},
}

// allows reports whether f satisfies every known restriction.
func (f food) allows(restrictions []string) bool {
	for _, r := range restrictions {
		if !knownRestrictions[r] {
			continue
		}
		found := false
		for _, tag := range f.Tags {
			if tag == r {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (f food) servesSlot(slot mealplan.Slot) bool {
	for _, s := range f.Slots {
		if s == slot {
			return true
		}
	}
	return false
}
