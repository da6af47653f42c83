// Command bookshelf は図書館の蔵書・貸出管理APIサーバーを起動する。
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/bookshelf/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "bookshelf: %v\n", err)
		os.Exit(1)
	}
}
