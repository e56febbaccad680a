package runtime

import (
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
	"k8s.io/klog/v2"
)

type lessDeviceFunc func(d1, d2 Device) bool

type deviceSorter struct {
	ds        []Device
	lessFuncs []lessDeviceFunc
}

func ByDevice(less ...lessDeviceFunc) *deviceSorter {
	return &deviceSorter{
		lessFuncs: less,
	}
}

func (ds *deviceSorter) Sort(devices []Device) {
	ds.ds = devices
	sort.Sort(ds)
}

func (ds *deviceSorter) Len() int { return len(ds.ds) }

func (ds *deviceSorter) Swap(i, j int) { ds.ds[i], ds.ds[j] = ds.ds[j], ds.ds[i] }

func (ds *deviceSorter) Less(i, j int) bool { return ds.less(ds.ds[i], ds.ds[j]) }

func (ds *deviceSorter) less(p, q Device) bool {
	var k int
	for k = 0; k < len(ds.lessFuncs)-1; k++ {
		less := ds.lessFuncs[k]
		switch {
		case less(p, q):
			return true
		case less(q, p):
			return false
		}
	}
	return ds.lessFuncs[k](p, q)
}

func (ds *deviceSorter) Insert(devices []Device, d Device) []Device {
	i := sort.Search(len(devices), func(i int) bool { return ds.less(devices[i], d) })
	devices = append(devices, d)
	copy(devices[i+1:], devices[i:])
	devices[i] = d
	return devices
}

type NameFilterFunc struct {
	Eq       string
	In       []string
	Contains string
}

type DeviceFilter struct {
	Name       interface{}
	Id         string
	DeviceCode string
	DeviceType string
}

type predicateDevice func(d Device) bool

func ParseDeviceFilter(filter *DeviceFilter) []predicateDevice {
	predicates := make([]predicateDevice, 0)

	if len(filter.Id) > 0 {
		predicates = append(predicates, func(d Device) bool {
			return filter.Id == d.GetID()
		})
	}

	if len(filter.DeviceCode) > 0 {
		predicates = append(predicates, func(d Device) bool {
			return filter.DeviceCode == d.GetDeviceCode()
		})
	}

	if len(filter.DeviceType) > 0 {
		predicates = append(predicates, func(d Device) bool {
			return filter.DeviceType == d.GetDeviceType()
		})
	}

	if filter.Name != nil {
		if name, ok := filter.Name.(string); ok {
			predicates = append(predicates, func(d Device) bool {
				return name == d.GetName()
			})
		} else {
			var ff NameFilterFunc
			if err := mapstructure.Decode(filter.Name, &ff); err != nil {
				klog.V(3).InfoS("Failed to parse filter.name", "err", err)
			}
			if len(ff.Eq) > 0 {
				predicates = append(predicates, func(d Device) bool {
					return ff.Eq == d.GetName()
				})
			}
			if len(ff.In) > 0 {
				predicates = append(predicates, func(d Device) bool {
					for _, name := range ff.In {
						if name == d.GetName() {
							return true
						}
					}
					return false
				})
			}
			if len(ff.Contains) > 0 {
				predicates = append(predicates, func(d Device) bool {
					return strings.Contains(d.GetName(), ff.Contains)
				})
			}
		}
	}

	return predicates
}
