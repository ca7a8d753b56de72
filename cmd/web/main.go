package main

import "eligibility_backend/internal/app"

func main() {
	app.Run()
}
