package main

import "github.com/wilschoy78/school-mis-api/cmd/misapi/cmd"

func main() {
	cmd.Execute()
}
