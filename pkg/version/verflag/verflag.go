package verflag

import (
	"fmt"
	"os"
	"strconv"

	flag "github.com/spf13/pflag"

	"smcgateway/pkg/version"
)

type versionValue int

const (
	VersionFalse versionValue = 0
	VersionTrue  versionValue = 1
	VersionRaw   versionValue = 2
)

const strRawVersion string = "raw"

func (v *versionValue) IsBoolFlag() bool {
	return true
}

func (v *versionValue) Get() interface{} {
	return versionValue(*v)
}

func (v *versionValue) Set(s string) error {
	if s == strRawVersion {
		*v = VersionRaw
		return nil
	}
	boolVal, err := strconv.ParseBool(s)
	if boolVal {
		*v = VersionTrue
	} else {
		*v = VersionFalse
	}
	return err
}

func (v *versionValue) String() string {
	if *v == VersionRaw {
		return strRawVersion
	}
	return fmt.Sprintf("%v", bool(*v == VersionTrue))
}

func (v *versionValue) Type() string {
	return "version"
}

var versionFlag versionValue

func AddFlags(fs *flag.FlagSet) {
	fs.Var(&versionFlag, "version", "Print version information and quit. --version=raw prints the raw version only")
	fs.Lookup("version").NoOptDefVal = "true"
}

// PrintAndExitIfRequested checks the --version flag and, when it was set,
// prints the version and exits.
func PrintAndExitIfRequested() {
	if versionFlag == VersionRaw {
		fmt.Printf("%#v\n", version.Get())
		os.Exit(0)
	} else if versionFlag == VersionTrue {
		fmt.Printf("smc-gateway %s\n", version.Get())
		os.Exit(0)
	}
}
