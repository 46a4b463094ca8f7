package auth

import "strings"

// RouteClass says whether a path needs a signed-in principal.
type RouteClass int

const (
	Protected RouteClass = iota
	Public
)

func (c RouteClass) String() string {
	if c == Public {
		return "public"
	}
	return "protected"
}

// SignInPath is where anonymous page requests are sent.
const SignInPath = "/sign-in"

// Exact public paths.
var publicExact = map[string]bool{
	"/":        true,
	"/welcome": true,
}

// Public path prefixes. A prefix matches the path itself and anything below
// it, so "/sign-in/github" is public but "/sign-inx" is not.
var publicPrefixes = []string{
	SignInPath,
	"/sign-up",
	"/static",
}

// Classify returns Public for the enumerated public patterns and Protected
// for everything else.
func Classify(path string) RouteClass {
	if path == "" {
		path = "/"
	}

	if publicExact[path] {
		return Public
	}

	for _, prefix := range publicPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return Public
		}
	}

	return Protected
}
