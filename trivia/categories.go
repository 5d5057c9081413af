package trivia

// Category is one votable topic. The table is static reference data; ids
// follow the Open Trivia DB category numbering.
type Category struct {
	Id   string `json:"id"`
	Name string `json:"name"`
}

var Categories = []Category{
	{Id: "9", Name: "General Knowledge"},
	{Id: "11", Name: "Film"},
	{Id: "12", Name: "Music"},
	{Id: "17", Name: "Science & Nature"},
	{Id: "21", Name: "Sports"},
	{Id: "23", Name: "History"},
}

func CategoryById(id string) (Category, bool) {
	for _, c := range Categories {
		if c.Id == id {
			return c, true
		}
	}
	return Category{}, false
}
