package booking

// Package is a membership tier a member buys when booking a trainer slot.
type Package struct {
	Name     string
	Price    float64
	Benefits []string
}

// Packages is the catalog offered on the booking page, cheapest first.
var Packages = []Package{
	{
		Name:  "Basic Membership",
		Price: 10,
		Benefits: []string{
			"Access to gym facilities during regular operating hours",
			"Use of cardio and strength training equipment",
			"Access to locker rooms and showers",
		},
	},
	{
		Name:  "Standard Membership",
		Price: 50,
		Benefits: []string{
			"All benefits of the basic membership",
			"Access to group fitness classes such as yoga, spinning, and Zumba",
			"Use of additional amenities like a sauna or steam room",
		},
	},
	{
		Name:  "Premium Membership",
		Price: 100,
		Benefits: []string{
			"All benefits of the standard membership",
			"Access to personal training sessions with certified trainers",
			"Discounts on additional services such as massage therapy or nutrition counseling",
		},
	},
}

// PackageByName looks up a package in the default catalog.
func PackageByName(name string) (Package, bool) {
	return lookupPackage(Packages, name)
}

func lookupPackage(pkgs []Package, name string) (Package, bool) {
	for _, p := range pkgs {
		if p.Name == name {
			return p, true
		}
	}
	return Package{}, false
}
