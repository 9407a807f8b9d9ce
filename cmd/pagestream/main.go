package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fulldump/goconfig"

	"github.com/fulldump/pagestream/bootstrap"
	"github.com/fulldump/pagestream/configuration"
)

var banner = `
 ____                 ____  _
|  _ \ __ _  __ _  __/ ___|| |_ _ __ ___  __ _ _ __ ___
| |_) / _` + "`" + ` |/ _` + "`" + ` |/ _ \___ \| __| '__/ _ \/ _` + "`" + ` | '_ ` + "`" + ` _ \
|  __/ (_| | (_| |  __/___) | |_| | |  __/ (_| | | | | | |
|_|   \__,_|\__, |\___|____/ \__|_|  \___|\__,_|_| |_| |_|
            |___/                 version ` + bootstrap.VERSION + `
`

func main() {

	c := configuration.Default()
	goconfig.Read(&c)

	if c.Version {
		fmt.Println("Version:", bootstrap.VERSION)
		return
	}

	if c.ShowBanner {
		fmt.Println(banner)
	}

	if c.ShowConfig {
		e := json.NewEncoder(os.Stdout)
		e.SetIndent("", "    ")
		e.Encode(c)
	}

	start, _ := bootstrap.Bootstrap(&c)

	start()
}
